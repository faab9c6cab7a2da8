package stock

import "context"

// LedgerMetrics records ledger activity. The telemetry package provides the
// OpenTelemetry implementation.
type LedgerMetrics interface {
	RecordMutation(ctx context.Context, operation string)
	RecordRejection(ctx context.Context, operation, code string)
	RecordRecalculation(ctx context.Context, productID int64, stock int)
}

// NopMetrics discards every measurement
type NopMetrics struct{}

// RecordMutation implements LedgerMetrics
func (NopMetrics) RecordMutation(context.Context, string) {}

// RecordRejection implements LedgerMetrics
func (NopMetrics) RecordRejection(context.Context, string, string) {}

// RecordRecalculation implements LedgerMetrics
func (NopMetrics) RecordRecalculation(context.Context, int64, int) {}

var _ LedgerMetrics = NopMetrics{}
