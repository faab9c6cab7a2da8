package stock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shipment"
	"github.com/erp/warehouse/internal/domain/warehouse"
	"github.com/erp/warehouse/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMetrics struct {
	stock.NopMetrics
	recalculated map[int64]int
}

func (m *recordingMetrics) RecordRecalculation(_ context.Context, productID int64, s int) {
	m.recalculated[productID] = s
}

func TestRecalculator_SumsEveryStage(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ledger := testutil.NewLedger(t, db)
	h := testutil.NewStockHarness(t, db)
	ctx := context.Background()

	p := ledger.Product()
	po := ledger.PurchaseOrder([]*catalog.Product{p}, 100)
	pallet, err := warehouse.NewPallet("P-1", nil, po.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(pallet).Error)
	pp, err := warehouse.NewPalletProduct(pallet.ID, po.Products[0].ID, 40)
	require.NoError(t, err)
	pp.AvailableQuantity = 25
	require.NoError(t, db.Create(pp).Error)
	require.NoError(t, db.Model(&po.Products[0]).Update("quantity_available", 60).Error)

	working := ledger.Shipment(shipment.StatusWorking)
	shipped := ledger.Shipment(shipment.StatusShipped)
	for qty, s := range map[int]*shipment.OutgoingShipment{5: working, 10: shipped} {
		line, err := shipment.NewOutgoingShipmentProduct(s.ID, pp.ID, qty)
		require.NoError(t, err)
		require.NoError(t, db.Create(line).Error)
	}
	ledger.AssertConservation()

	level, err := h.Recalculator.Recalculate(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, level.PurchaseOrderStage)
	assert.Equal(t, 25, level.PalletStage)
	assert.Equal(t, 5, level.WorkingShipments)
	assert.Equal(t, 90, level.WarehouseStock)
	assert.Equal(t, 90, ledger.WarehouseStock(p.ID))

	events := h.Publisher.Events()
	require.Len(t, events, 1)
	e, ok := events[0].(*catalog.WarehouseStockRecalculatedEvent)
	require.True(t, ok)
	assert.Equal(t, 90, e.WarehouseStock)
}

func TestRecalculator_RecalculateAll(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ledger := testutil.NewLedger(t, db)
	scope := testutil.NewStockHarness(t, db).Scope
	metrics := &recordingMetrics{recalculated: map[int64]int{}}
	r := stock.NewRecalculator(scope, nil, metrics, nil)

	a, b := ledger.Product(), ledger.Product()
	ledger.PurchaseOrder([]*catalog.Product{a, b}, 4, 9)
	require.NoError(t, db.Model(&catalog.Product{}).Where("id = ?", a.ID).Update("warehouse_stock", 1000).Error)

	n, err := r.RecalculateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, ledger.WarehouseStock(a.ID), "drifted cache is overwritten")
	assert.Equal(t, 9, ledger.WarehouseStock(b.ID))
	assert.Equal(t, map[int64]int{a.ID: 4, b.ID: 9}, metrics.recalculated)
}

func TestRecalculator_RecalculateAll_Cancelled(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ledger := testutil.NewLedger(t, db)
	r := testutil.NewStockHarness(t, db).Recalculator
	ledger.Product()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := r.RecalculateAll(ctx)
	assert.Zero(t, n)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRecalculator_RollsBackWithCaller(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ledger := testutil.NewLedger(t, db)
	h := testutil.NewStockHarness(t, db)
	p := ledger.Product()
	ledger.PurchaseOrder([]*catalog.Product{p}, 6)

	boom := errors.New("boom")
	err := h.Scope.Execute(context.Background(), func(repos stock.TransactionalRepositories) error {
		levels, err := h.Recalculator.RecalculateInTx(context.Background(), repos, p.ID)
		require.NoError(t, err)
		require.Equal(t, 6, levels[0].WarehouseStock)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, ledger.WarehouseStock(p.ID))
	assert.Empty(t, h.Publisher.Events())
}

func TestProductSet(t *testing.T) {
	s := stock.ProductSet{}
	s.Add(3, 1, 3, 0, -2, 2)
	assert.Equal(t, []int64{1, 2, 3}, s.IDs())
}

func TestRecalculator_UnknownProduct(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	h := testutil.NewStockHarness(t, db)
	_, err := h.Recalculator.Recalculate(context.Background(), 42)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
