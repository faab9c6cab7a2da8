package catalog

import (
	"context"
	"time"
)

// ProductCache is a read-through cache of product rows keyed by ID.
// A miss returns (nil, nil).
type ProductCache interface {
	Get(ctx context.Context, id int64) (*Product, error)
	Set(ctx context.Context, product *Product, ttl time.Duration) error
	Delete(ctx context.Context, id int64) error
}

// DefaultProductCacheTTL bounds how long a cached product may outlive a
// missed invalidation.
const DefaultProductCacheTTL = 5 * time.Minute
