// Package stock holds the pieces shared by every ledger-mutating service:
// the transaction scope that hands out transaction-bound repositories and the
// warehouse stock recalculator.
package stock

import (
	"context"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/purchasing"
	"github.com/erp/warehouse/internal/domain/shipment"
	"github.com/erp/warehouse/internal/domain/warehouse"
)

// TransactionScope runs a unit of work inside one database transaction.
// If fn returns an error the transaction is rolled back, otherwise committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides every ledger repository bound to the
// same transaction.
type TransactionalRepositories interface {
	PurchaseOrders() purchasing.PurchaseOrderRepository
	PurchaseOrderProducts() purchasing.PurchaseOrderProductRepository
	Locations() warehouse.LocationRepository
	Pallets() warehouse.PalletRepository
	PalletProducts() warehouse.PalletProductRepository
	Shipments() shipment.OutgoingShipmentRepository
	Products() catalog.ProductRepository
	Suppliers() catalog.SupplierRepository
	StockQuery() QueryRepository
}

// Breakdown is a product's on-hand stock split by ledger stage
type Breakdown struct {
	ProductID          int64 `json:"product_id"`
	PurchaseOrderStage int   `json:"purchase_order_stage"`
	PalletStage        int   `json:"pallet_stage"`
	WorkingShipments   int   `json:"working_shipments"`
}

// Total returns the warehouse stock figure
func (b Breakdown) Total() int {
	return b.PurchaseOrderStage + b.PalletStage + b.WorkingShipments
}

// QueryRepository runs the read-only aggregate queries behind stock
// recalculation and product lookups for ledger rows.
type QueryRepository interface {
	// ComputeWarehouseStock aggregates the three ledger stages of a product
	// across active purchase orders.
	ComputeWarehouseStock(ctx context.Context, productID int64) (Breakdown, error)
	// ProductIDsForPurchaseOrderProducts maps line items to their products
	ProductIDsForPurchaseOrderProducts(ctx context.Context, ids []int64) ([]int64, error)
	// ProductIDsForPalletProducts maps pallet products to their products
	ProductIDsForPalletProducts(ctx context.Context, ids []int64) ([]int64, error)
}
