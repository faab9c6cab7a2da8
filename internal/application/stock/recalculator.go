package stock

import (
	"context"
	"fmt"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Level is the recalculated stock of one product
type Level struct {
	Breakdown
	WarehouseStock int `json:"warehouse_stock"`
}

// Recalculator rebuilds the cached Product.warehouse_stock from the ledger.
// It is the only writer of that field and is safe to call redundantly.
type Recalculator struct {
	scope     TransactionScope
	publisher shared.EventPublisher
	metrics   LedgerMetrics
	logger    *zap.Logger
}

// NewRecalculator creates a Recalculator. publisher and metrics may be nil.
func NewRecalculator(scope TransactionScope, publisher shared.EventPublisher, metrics LedgerMetrics, logger *zap.Logger) *Recalculator {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recalculator{
		scope:     scope,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Recalculate rebuilds one product's stock in its own transaction
func (r *Recalculator) Recalculate(ctx context.Context, productID int64) (*Level, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "recalculate",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, productID))
	defer span.End()

	var levels []Level
	err := r.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Products().FindByID(ctx, productID); err != nil {
			return err
		}
		var err error
		levels, err = r.RecalculateInTx(ctx, repos, productID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	r.Publish(ctx, levels)
	telemetry.SetOK(span)
	return &levels[0], nil
}

// RecalculateInTx rebuilds the stock of productIDs using the caller's
// transaction. Mutating services call it before committing so that the cache
// commits or rolls back together with the ledger rows.
func (r *Recalculator) RecalculateInTx(ctx context.Context, repos TransactionalRepositories, productIDs ...int64) ([]Level, error) {
	levels := make([]Level, 0, len(productIDs))
	for _, productID := range productIDs {
		breakdown, err := repos.StockQuery().ComputeWarehouseStock(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("compute warehouse stock for product %d: %w", productID, err)
		}
		total := breakdown.Total()
		if err := repos.Products().UpdateWarehouseStock(ctx, productID, total); err != nil {
			return nil, fmt.Errorf("store warehouse stock for product %d: %w", productID, err)
		}
		levels = append(levels, Level{Breakdown: breakdown, WarehouseStock: total})
	}
	return levels, nil
}

// RecalculateAll rebuilds every product, one transaction per product, and
// returns the number of products processed.
func (r *Recalculator) RecalculateAll(ctx context.Context) (int, error) {
	var ids []int64
	err := r.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ids, err = repos.Products().ListIDs(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := r.Recalculate(ctx, id); err != nil {
			return done, fmt.Errorf("recalculate product %d: %w", id, err)
		}
		done++
	}
	r.logger.Info("Warehouse stock rebuilt", zap.Int("products", done))
	return done, nil
}

// Publish emits a WarehouseStockRecalculated event per level. It must only be
// called after the transaction that produced levels has committed.
func (r *Recalculator) Publish(ctx context.Context, levels []Level) {
	for _, level := range levels {
		r.metrics.RecordRecalculation(ctx, level.ProductID, level.WarehouseStock)
	}
	if r.publisher == nil || len(levels) == 0 {
		return
	}
	events := make([]shared.DomainEvent, 0, len(levels))
	for _, level := range levels {
		events = append(events, catalog.NewWarehouseStockRecalculatedEvent(level.ProductID, level.WarehouseStock))
	}
	if err := r.publisher.Publish(ctx, events...); err != nil {
		r.logger.Warn("Failed to publish stock recalculation events", zap.Error(err))
	}
}
