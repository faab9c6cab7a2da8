package cache

import (
	"context"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/shared"
	"go.uber.org/zap"
)

// StockInvalidationHandler evicts cached products whose warehouse stock was
// recalculated, so the next read sees the committed figure.
type StockInvalidationHandler struct {
	cache  catalog.ProductCache
	logger *zap.Logger
}

// NewStockInvalidationHandler creates a new StockInvalidationHandler
func NewStockInvalidationHandler(cache catalog.ProductCache, logger *zap.Logger) *StockInvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockInvalidationHandler{cache: cache, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *StockInvalidationHandler) EventTypes() []string {
	return []string{catalog.EventTypeWarehouseStockRecalculated}
}

// Handle implements shared.EventHandler
func (h *StockInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	productID := event.AggregateID()
	if e, ok := event.(*catalog.WarehouseStockRecalculatedEvent); ok {
		productID = e.ProductID
	}
	if err := h.cache.Delete(ctx, productID); err != nil {
		h.logger.Warn("Failed to evict product from cache",
			zap.Int64("product_id", productID),
			zap.Error(err))
		return err
	}
	return nil
}

var _ shared.EventHandler = (*StockInvalidationHandler)(nil)
