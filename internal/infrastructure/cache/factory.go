package cache

import (
	"time"

	"github.com/erp/warehouse/internal/domain/catalog"
	"go.uber.org/zap"
)

// ProductCacheFactory creates product caches based on configuration
type ProductCacheFactory struct {
	redisConfig           RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ProductCacheFactoryOption is a functional option for configuring the factory
type ProductCacheFactoryOption func(*ProductCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ProductCacheFactoryOption {
	return func(f *ProductCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) ProductCacheFactoryOption {
	return func(f *ProductCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewProductCacheFactory creates a new factory
func NewProductCacheFactory(cfg RedisConfig, ttl time.Duration, opts ...ProductCacheFactoryOption) *ProductCacheFactory {
	f := &ProductCacheFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache tries Redis first and falls back to an in-memory cache when
// allowed. The returned close function releases the cache.
func (f *ProductCacheFactory) CreateCache() (catalog.ProductCache, func(), error) {
	redisCache, err := NewRedisProductCache(f.redisConfig, WithTTL(f.ttl), WithCacheLogger(f.logger))
	if err == nil {
		f.logger.Info("Using Redis product cache", zap.String("addr", f.redisConfig.Addr()))
		return redisCache, func() { _ = redisCache.Close() }, nil
	}
	if !f.allowInMemoryFallback {
		return nil, nil, err
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory product cache", zap.Error(err))
	mem := NewInMemoryProductCache(f.ttl)
	return mem, mem.Stop, nil
}
