package purchasing

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
)

// PurchaseOrderRepository defines persistence for purchase orders
type PurchaseOrderRepository interface {
	FindByID(ctx context.Context, id int64) (*PurchaseOrder, error)
	// FindByIDWithProducts loads the order and its line items
	FindByIDWithProducts(ctx context.Context, id int64) (*PurchaseOrder, error)
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)
	FindAll(ctx context.Context, filter shared.Filter, activeOnly bool) ([]PurchaseOrder, int64, error)
	// Create inserts the order together with its line items
	Create(ctx context.Context, order *PurchaseOrder) error
	UpdateStatus(ctx context.Context, id int64, status OrderStatus) error
	// Deactivate clears the active flag on the order and all of its lines
	Deactivate(ctx context.Context, id int64) error
}

// PurchaseOrderProductRepository is the ledger-facing repository of line
// items. Consume and Restore are guarded single-statement updates: they never
// read-modify-write the counter in application code.
type PurchaseOrderProductRepository interface {
	FindByID(ctx context.Context, id int64) (*PurchaseOrderProduct, error)
	// FindByIDForUpdate reads the line under a row lock
	FindByIDForUpdate(ctx context.Context, id int64) (*PurchaseOrderProduct, error)
	// ConsumeAvailable subtracts quantity when at least quantity is available,
	// failing with QUANTITY_EXCEEDED otherwise.
	ConsumeAvailable(ctx context.Context, id int64, quantity int) error
	// RestoreAvailable adds quantity back, failing with LEDGER_INCONSISTENT if
	// the result would exceed the purchased quantity.
	RestoreAvailable(ctx context.Context, id int64, quantity int) error
	UpdateReceived(ctx context.Context, id int64, received, missing int) error
}
