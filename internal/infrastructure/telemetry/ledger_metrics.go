package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// LedgerMeterName is the instrumentation scope of the ledger instruments
const LedgerMeterName = "warehouse-stock/ledger"

// LedgerMetrics records quantity ledger activity: applied mutations,
// rejected operations by error code and the last recalculated stock figure
// per product.
type LedgerMetrics struct {
	mutations      *Counter
	rejections     *Counter
	recalculations *Counter
	warehouseStock *Gauge

	mu        sync.Mutex
	lastStock map[int64]int
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	mutations, err := NewCounter(meter,
		"ledger_mutations_total",
		"Committed quantity ledger mutations by operation",
		"{mutation}",
	)
	if err != nil {
		return nil, err
	}
	rejections, err := NewCounter(meter,
		"ledger_rejections_total",
		"Rejected quantity ledger operations by operation and error code",
		"{rejection}",
	)
	if err != nil {
		return nil, err
	}
	recalculations, err := NewCounter(meter,
		"warehouse_stock_recalculations_total",
		"Warehouse stock recalculations",
		"{recalculation}",
	)
	if err != nil {
		return nil, err
	}
	warehouseStock, err := NewGauge(meter,
		"warehouse_stock_units",
		"Last recalculated warehouse stock per product",
		"{unit}",
	)
	if err != nil {
		return nil, err
	}
	return &LedgerMetrics{
		mutations:      mutations,
		rejections:     rejections,
		recalculations: recalculations,
		warehouseStock: warehouseStock,
		lastStock:      make(map[int64]int),
	}, nil
}

// RecordMutation counts a committed ledger mutation
func (m *LedgerMetrics) RecordMutation(ctx context.Context, operation string) {
	m.mutations.Inc(ctx, AttrOperation.String(operation))
}

// RecordRejection counts an operation rejected with a domain error code
func (m *LedgerMetrics) RecordRejection(ctx context.Context, operation, code string) {
	m.rejections.Inc(ctx, AttrOperation.String(operation), AttrErrorCode.String(code))
}

// RecordRecalculation records a rebuilt stock figure
func (m *LedgerMetrics) RecordRecalculation(ctx context.Context, productID int64, stock int) {
	m.recalculations.Inc(ctx)
	m.warehouseStock.Record(ctx, int64(stock), AttrProductID.Int64(productID))

	m.mu.Lock()
	m.lastStock[productID] = stock
	m.mu.Unlock()
}

// LastStock returns the last recorded stock of a product
func (m *LedgerMetrics) LastStock(productID int64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stock, ok := m.lastStock[productID]
	return stock, ok
}
