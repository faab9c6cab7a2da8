package catalog

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
)

// ProductFilter narrows product listings
type ProductFilter struct {
	shared.Filter
	SupplierID *int64
	ActiveOnly bool
	InStock    bool
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (*Product, error)
	FindByASIN(ctx context.Context, asin string) (*Product, error)
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	// ListIDs returns every product ID, used by full stock rebuilds
	ListIDs(ctx context.Context) ([]int64, error)
	Save(ctx context.Context, product *Product) error
	// UpdateWarehouseStock overwrites the derived stock cache only
	UpdateWarehouseStock(ctx context.Context, id int64, stock int) error
}

// SupplierRepository defines the interface for supplier persistence
type SupplierRepository interface {
	FindByID(ctx context.Context, id int64) (*Supplier, error)
	Save(ctx context.Context, supplier *Supplier) error
}
