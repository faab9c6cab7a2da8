package catalog

import (
	"github.com/erp/warehouse/internal/domain/shared"
)

// AggregateTypeProduct is the aggregate type of product events
const AggregateTypeProduct = "Product"

// EventTypeWarehouseStockRecalculated is published after a product's cached
// warehouse stock has been rebuilt from the ledger and committed.
const EventTypeWarehouseStockRecalculated = "WarehouseStockRecalculated"

// WarehouseStockRecalculatedEvent carries the rebuilt stock figure
type WarehouseStockRecalculatedEvent struct {
	shared.BaseDomainEvent
	ProductID      int64 `json:"product_id"`
	WarehouseStock int   `json:"warehouse_stock"`
}

// NewWarehouseStockRecalculatedEvent creates a new WarehouseStockRecalculatedEvent
func NewWarehouseStockRecalculatedEvent(productID int64, stock int) *WarehouseStockRecalculatedEvent {
	return &WarehouseStockRecalculatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWarehouseStockRecalculated, AggregateTypeProduct, productID),
		ProductID:       productID,
		WarehouseStock:  stock,
	}
}
