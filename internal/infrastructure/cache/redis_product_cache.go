package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisProductCache implements catalog.ProductCache using Redis
type RedisProductCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	keyPrefix  string
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisProductCacheOption is a functional option for configuring the cache
type RedisProductCacheOption func(*RedisProductCache)

// WithKeyPrefix sets the key prefix
func WithKeyPrefix(prefix string) RedisProductCacheOption {
	return func(c *RedisProductCache) {
		c.keyPrefix = prefix
	}
}

// WithTTL sets the default entry TTL
func WithTTL(ttl time.Duration) RedisProductCacheOption {
	return func(c *RedisProductCache) {
		c.ttl = ttl
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisProductCacheOption {
	return func(c *RedisProductCache) {
		c.logger = logger
	}
}

// NewRedisProductCache connects to Redis and creates a cache owning the client
func NewRedisProductCache(cfg RedisConfig, opts ...RedisProductCacheOption) (*RedisProductCache, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	c := NewRedisProductCacheWithClient(client, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisProductCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client.
func NewRedisProductCacheWithClient(client *redis.Client, opts ...RedisProductCacheOption) *RedisProductCache {
	c := &RedisProductCache{
		client:    client,
		keyPrefix: "wms:product:",
		ttl:       catalog.DefaultProductCacheTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisProductCache) key(id int64) string {
	return fmt.Sprintf("%s%d", c.keyPrefix, id)
}

// Get retrieves a product from cache
func (c *RedisProductCache) Get(ctx context.Context, id int64) (*catalog.Product, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Cache miss for product", zap.Int64("product_id", id))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product from cache: %w", err)
	}

	var product catalog.Product
	if err := json.Unmarshal(data, &product); err != nil {
		// Corrupted entry
		_ = c.client.Del(ctx, c.key(id))
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	return &product, nil
}

// Set stores a product in cache
func (c *RedisProductCache) Set(ctx context.Context, product *catalog.Product, ttl time.Duration) error {
	if product == nil {
		return nil
	}
	if ttl == 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}
	if err := c.client.Set(ctx, c.key(product.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set product in cache: %w", err)
	}
	return nil
}

// Delete removes a product from cache
func (c *RedisProductCache) Delete(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete product from cache: %w", err)
	}
	c.logger.Debug("Deleted product from cache", zap.Int64("product_id", id))
	return nil
}

// Close releases the Redis client if the cache created it
func (c *RedisProductCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ catalog.ProductCache = (*RedisProductCache)(nil)
