package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/warehouse/internal/domain/catalog"
)

const defaultCleanupInterval = 30 * time.Second

// InMemoryProductCache implements catalog.ProductCache in process memory.
// It is used in tests and single-instance deployments without Redis.
type InMemoryProductCache struct {
	entries sync.Map // map[int64]*cacheEntry
	ttl     time.Duration
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

type cacheEntry struct {
	product   catalog.Product
	expiresAt time.Time
}

func (e *cacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// NewInMemoryProductCache creates a cache and starts its cleanup goroutine.
// Call Stop to release it.
func NewInMemoryProductCache(ttl time.Duration) *InMemoryProductCache {
	if ttl <= 0 {
		ttl = catalog.DefaultProductCacheTTL
	}
	c := &InMemoryProductCache{
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}
	go c.cleanupExpired()
	return c
}

// Get retrieves a copy of a cached product
func (c *InMemoryProductCache) Get(_ context.Context, id int64) (*catalog.Product, error) {
	if value, ok := c.entries.Load(id); ok {
		entry := value.(*cacheEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			product := entry.product
			return &product, nil
		}
		c.entries.Delete(id)
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// Set stores a copy of product
func (c *InMemoryProductCache) Set(_ context.Context, product *catalog.Product, ttl time.Duration) error {
	if product == nil {
		return nil
	}
	if ttl == 0 {
		ttl = c.ttl
	}
	c.entries.Store(product.ID, &cacheEntry{product: *product, expiresAt: time.Now().Add(ttl)})
	return nil
}

// Delete removes a product
func (c *InMemoryProductCache) Delete(_ context.Context, id int64) error {
	c.entries.Delete(id)
	return nil
}

// Stats returns hit and miss counters
func (c *InMemoryProductCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (c *InMemoryProductCache) Stop() {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
}

func (c *InMemoryProductCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.entries.Range(func(key, value any) bool {
				if value.(*cacheEntry).isExpired() {
					c.entries.Delete(key)
				}
				return true
			})
		case <-c.stopCh:
			return
		}
	}
}

var _ catalog.ProductCache = (*InMemoryProductCache)(nil)
