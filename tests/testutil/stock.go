package testutil

import (
	"testing"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// StockHarness wires the transaction scope and recalculator that every
// ledger service needs on top of a test database.
type StockHarness struct {
	Scope        stock.TransactionScope
	Recalculator *stock.Recalculator
	Publisher    *RecordingPublisher
}

// NewStockHarness builds a StockHarness over db
func NewStockHarness(t *testing.T, db *gorm.DB) *StockHarness {
	t.Helper()
	scope := persistence.NewGormTransactionScope(db)
	publisher := &RecordingPublisher{}
	return &StockHarness{
		Scope:        scope,
		Recalculator: stock.NewRecalculator(scope, publisher, nil, zaptest.NewLogger(t)),
		Publisher:    publisher,
	}
}
