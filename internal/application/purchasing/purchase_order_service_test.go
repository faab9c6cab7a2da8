package purchasing_test

import (
	"context"
	"testing"

	apppurchasing "github.com/erp/warehouse/internal/application/purchasing"
	"github.com/erp/warehouse/internal/domain/purchasing"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newPurchaseOrderService(t *testing.T) (*apppurchasing.PurchaseOrderService, *testutil.Ledger, *testutil.StockHarness) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	harness := testutil.NewStockHarness(t, db)
	svc := apppurchasing.NewPurchaseOrderService(harness.Scope, harness.Recalculator, nil, zaptest.NewLogger(t))
	return svc, testutil.NewLedger(t, db), harness
}

func TestPurchaseOrderService_Create(t *testing.T) {
	svc, ledger, harness := newPurchaseOrderService(t)
	ctx := context.Background()
	supplier := ledger.Supplier()
	a, b := ledger.Product(), ledger.Product()

	order, err := svc.CreatePurchaseOrder(ctx, apppurchasing.CreatePurchaseOrderRequest{
		OrderNumber: "PO-1",
		SupplierID:  supplier.ID,
		Products: []apppurchasing.OrderLineRequest{
			{ProductID: a.ID, Quantity: 10, UnitPrice: decimal.RequireFromString("2.50")},
			{ProductID: b.ID, Quantity: 4, UnitPrice: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, string(purchasing.OrderStatusPending), order.Status)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("29")))
	require.Len(t, order.Products, 2)
	assert.Equal(t, 10, order.Products[0].QuantityAvailable)
	assert.Equal(t, 10, ledger.WarehouseStock(a.ID))
	assert.Equal(t, 4, ledger.WarehouseStock(b.ID))
	assert.Len(t, harness.Publisher.Events(), 2)
}

func TestPurchaseOrderService_CreateRejections(t *testing.T) {
	svc, ledger, _ := newPurchaseOrderService(t)
	ctx := context.Background()
	supplier := ledger.Supplier()
	p := ledger.Product()

	line := []apppurchasing.OrderLineRequest{{ProductID: p.ID, Quantity: 1}}
	_, err := svc.CreatePurchaseOrder(ctx, apppurchasing.CreatePurchaseOrderRequest{OrderNumber: "PO-1", SupplierID: supplier.ID, Products: line})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  apppurchasing.CreatePurchaseOrderRequest
		code string
	}{
		{"duplicate number", apppurchasing.CreatePurchaseOrderRequest{OrderNumber: "PO-1", SupplierID: supplier.ID, Products: line}, shared.CodeDuplicateKey},
		{"unknown supplier", apppurchasing.CreatePurchaseOrderRequest{OrderNumber: "PO-2", SupplierID: 999, Products: line}, shared.CodeNotFound},
		{"unknown product", apppurchasing.CreatePurchaseOrderRequest{OrderNumber: "PO-3", SupplierID: supplier.ID,
			Products: []apppurchasing.OrderLineRequest{{ProductID: 999, Quantity: 1}}}, shared.CodeNotFound},
		{"repeated product", apppurchasing.CreatePurchaseOrderRequest{OrderNumber: "PO-4", SupplierID: supplier.ID,
			Products: append(line, line...)}, shared.CodeInvalidInput},
		{"negative price", apppurchasing.CreatePurchaseOrderRequest{OrderNumber: "PO-5", SupplierID: supplier.ID,
			Products: []apppurchasing.OrderLineRequest{{ProductID: p.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}}}, shared.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePurchaseOrder(ctx, tt.req)
			assert.True(t, shared.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.Equal(t, int64(1), ledger.Count(&purchasing.PurchaseOrder{}))
}

func TestPurchaseOrderService_StatusDoesNotMoveStock(t *testing.T) {
	svc, ledger, _ := newPurchaseOrderService(t)
	ctx := context.Background()
	p := ledger.Product()
	po := ledger.PurchaseOrder(testProducts(p), 8)

	updated, err := svc.UpdateStatus(ctx, po.ID, "Arrived")
	require.NoError(t, err)
	assert.Equal(t, "Arrived", updated.Status)

	_, err = svc.UpdateStatus(ctx, po.ID, "Closed")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, po.ID, "Pending")
	assert.True(t, shared.HasCode(err, shared.CodeInvalidState))
	_, err = svc.UpdateStatus(ctx, po.ID, "Lost at sea")
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))

	assert.Equal(t, 8, ledger.OrderLine(po.Products[0].ID).QuantityAvailable)
}

func TestPurchaseOrderService_RecordReceived(t *testing.T) {
	svc, ledger, _ := newPurchaseOrderService(t)
	ctx := context.Background()
	po := ledger.PurchaseOrder(testProducts(ledger.Product()), 8)
	lineID := po.Products[0].ID

	line, err := svc.RecordReceived(ctx, lineID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, line.QuantityReceived)
	assert.Equal(t, 2, line.QuantityMissing)
	assert.Equal(t, 8, ledger.OrderLine(lineID).QuantityAvailable)

	_, err = svc.RecordReceived(ctx, lineID, 9)
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
}

func TestPurchaseOrderService_Deactivate(t *testing.T) {
	svc, ledger, harness := newPurchaseOrderService(t)
	ctx := context.Background()
	p := ledger.Product()
	po := ledger.PurchaseOrder(testProducts(p), 8)
	_, err := harness.Recalculator.Recalculate(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 8, ledger.WarehouseStock(p.ID))

	require.NoError(t, svc.Deactivate(ctx, po.ID))
	assert.Zero(t, ledger.WarehouseStock(p.ID))

	got, err := svc.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.False(t, got.Products[0].IsActive)

	require.NoError(t, svc.Deactivate(ctx, po.ID), "deactivating twice is a no-op")
	assert.ErrorIs(t, svc.Deactivate(ctx, 999), shared.ErrNotFound)

	active, err := svc.ListPurchaseOrders(ctx, 1, 20, true)
	require.NoError(t, err)
	assert.Zero(t, active.Total)
}
