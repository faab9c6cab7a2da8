package shipment_test

import (
	"testing"
	"time"

	appshipment "github.com/erp/warehouse/internal/application/shipment"
	appwarehouse "github.com/erp/warehouse/internal/application/warehouse"
	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shipment"
	"github.com/erp/warehouse/internal/domain/warehouse"
	"github.com/erp/warehouse/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type shipmentFixture struct {
	ledger    *testutil.Ledger
	harness   *testutil.StockHarness
	shipments *appshipment.ShipmentService
	pallets   *appwarehouse.PalletService
	product   *catalog.Product
	orderLine int64
	location  int64
	pallet    *appwarehouse.PalletResponse
	ppID      int64
}

// newShipmentFixture builds the state after placing pallet P-100 with 20 of
// the 50 ordered units in a single-slot location.
func newShipmentFixture(t *testing.T) *shipmentFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	ledger := testutil.NewLedger(t, db)
	harness := testutil.NewStockHarness(t, db)
	logger := zaptest.NewLogger(t)

	f := &shipmentFixture{
		ledger:    ledger,
		harness:   harness,
		shipments: appshipment.NewShipmentService(harness.Scope, harness.Recalculator, nil, logger),
		pallets:   appwarehouse.NewPalletService(harness.Scope, harness.Recalculator, nil, logger),
		product:   ledger.Product(),
	}
	order := ledger.PurchaseOrder([]*catalog.Product{f.product}, 50)
	f.orderLine = order.Products[0].ID
	f.location = ledger.Location(1).ID

	pallet, err := f.pallets.CreatePallet(testutil.ContextWithTimeout(t, 5*time.Second), appwarehouse.CreatePalletRequest{
		PalletNumber:        "P-100",
		WarehouseLocationID: &f.location,
		PurchaseOrderID:     order.ID,
		Products:            []appwarehouse.PalletLine{{PurchaseOrderProductID: f.orderLine, Quantity: 20}},
	})
	require.NoError(t, err)
	f.pallet = pallet
	f.ppID = pallet.Products[0].ID
	harness.Publisher.Reset()
	return f
}

func (f *shipmentFixture) ship(number, status string, qty int) appshipment.CreateShipmentRequest {
	return appshipment.CreateShipmentRequest{
		ShipmentNumber: number,
		Status:         status,
		Products:       []appshipment.ShipmentLine{{PalletProductID: f.ppID, Quantity: qty}},
	}
}

func TestShipmentService_ShipAndOverShip(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	s1, err := f.shipments.CreateShipment(ctx, f.ship("S-1", "", 15))
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusDraft, s1.Status)
	assert.Equal(t, 5, f.ledger.PalletProduct(f.ppID).AvailableQuantity)
	assert.Equal(t, 35, f.ledger.WarehouseStock(f.product.ID), "draft shipments leave the warehouse stock")

	_, err = f.shipments.CreateShipment(ctx, f.ship("S-2", "", 10))
	assert.ErrorIs(t, err, shared.ErrQuantityExceeded)
	assert.Equal(t, 5, f.ledger.PalletProduct(f.ppID).AvailableQuantity)
	assert.Equal(t, int64(1), f.ledger.Count(&shipment.OutgoingShipment{}))
	f.ledger.AssertConservation()
}

func TestShipmentService_DeletePalletInUse(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	_, err := f.shipments.CreateShipment(ctx, f.ship("S-1", "", 15))
	require.NoError(t, err)

	err = f.pallets.DeletePallet(ctx, f.pallet.ID)
	assert.ErrorIs(t, err, shared.ErrPalletInUse)

	assert.Equal(t, int64(1), f.ledger.Count(&warehouse.Pallet{}))
	assert.Equal(t, 5, f.ledger.PalletProduct(f.ppID).AvailableQuantity)
	assert.Equal(t, 30, f.ledger.OrderLine(f.orderLine).QuantityAvailable)
	assert.Equal(t, 0, f.ledger.LocationRow(f.location).CurrentCapacity)
	f.ledger.AssertConservation()
}

func TestShipmentService_PalletLineGuards(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	_, err := f.shipments.CreateShipment(ctx, f.ship("S-1", "", 15))
	require.NoError(t, err)

	shrink := []appwarehouse.PalletLine{{PurchaseOrderProductID: f.orderLine, Quantity: 10}}
	_, err = f.pallets.UpdatePallet(ctx, f.pallet.ID, appwarehouse.UpdatePalletRequest{Products: &shrink})
	assert.ErrorIs(t, err, shared.ErrQuantityExceeded, "cannot shrink below the shipped 15")

	resize := []appwarehouse.PalletLine{{PurchaseOrderProductID: f.orderLine, Quantity: 16}}
	_, err = f.pallets.UpdatePallet(ctx, f.pallet.ID, appwarehouse.UpdatePalletRequest{Products: &resize})
	require.NoError(t, err)
	pp := f.ledger.PalletProduct(f.ppID)
	assert.Equal(t, 16, pp.Quantity)
	assert.Equal(t, 1, pp.AvailableQuantity)

	empty := []appwarehouse.PalletLine{}
	_, err = f.pallets.UpdatePallet(ctx, f.pallet.ID, appwarehouse.UpdatePalletRequest{Products: &empty})
	assert.ErrorIs(t, err, shared.ErrPalletInUse)
	f.ledger.AssertConservation()
}

func TestShipmentService_WorkingStatusCountsAsStock(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	s1, err := f.shipments.CreateShipment(ctx, f.ship("S-1", "working", 15))
	require.NoError(t, err)
	assert.Equal(t, shipment.StatusWorking, s1.Status)
	assert.Equal(t, 50, f.ledger.WarehouseStock(f.product.ID))

	f.harness.Publisher.Reset()
	_, err = f.shipments.UpdateStatus(ctx, s1.ID, "SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, 35, f.ledger.WarehouseStock(f.product.ID))
	assert.Len(t, f.harness.Publisher.Events(), 1)

	f.harness.Publisher.Reset()
	ref := "AMZ-REF"
	_, err = f.shipments.UpdateShipment(ctx, s1.ID, appshipment.UpdateShipmentRequest{Reference: &ref})
	require.NoError(t, err)
	assert.Empty(t, f.harness.Publisher.Events(), "header-only edits recalculate nothing")
}

func TestShipmentService_UpdateLines(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	s1, err := f.shipments.CreateShipment(ctx, f.ship("S-1", "", 15))
	require.NoError(t, err)

	grow := []appshipment.ShipmentLine{{PalletProductID: f.ppID, Quantity: 20}}
	updated, err := f.shipments.UpdateShipment(ctx, s1.ID, appshipment.UpdateShipmentRequest{Products: &grow})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.Products[0].Quantity)
	assert.Zero(t, f.ledger.PalletProduct(f.ppID).AvailableQuantity)

	over := []appshipment.ShipmentLine{{PalletProductID: f.ppID, Quantity: 21}}
	_, err = f.shipments.UpdateShipment(ctx, s1.ID, appshipment.UpdateShipmentRequest{Products: &over})
	assert.ErrorIs(t, err, shared.ErrQuantityExceeded)

	shrink := []appshipment.ShipmentLine{{PalletProductID: f.ppID, Quantity: 4}}
	_, err = f.shipments.UpdateShipment(ctx, s1.ID, appshipment.UpdateShipmentRequest{Products: &shrink})
	require.NoError(t, err)
	assert.Equal(t, 16, f.ledger.PalletProduct(f.ppID).AvailableQuantity)

	none := []appshipment.ShipmentLine{}
	updated, err = f.shipments.UpdateShipment(ctx, s1.ID, appshipment.UpdateShipmentRequest{Products: &none})
	require.NoError(t, err)
	assert.Empty(t, updated.Products)
	assert.Equal(t, 20, f.ledger.PalletProduct(f.ppID).AvailableQuantity)
	assert.Equal(t, 50, f.ledger.WarehouseStock(f.product.ID))
	f.ledger.AssertConservation()
}

func TestShipmentService_UpdateLines_MixedPlan(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)
	products := []*catalog.Product{f.ledger.Product(), f.ledger.Product(), f.ledger.Product()}
	order := f.ledger.PurchaseOrder(products, 10, 10, 10)

	lines := make([]appwarehouse.PalletLine, 0, len(order.Products))
	for _, line := range order.Products {
		lines = append(lines, appwarehouse.PalletLine{PurchaseOrderProductID: line.ID, Quantity: 10})
	}
	pallet, err := f.pallets.CreatePallet(ctx, appwarehouse.CreatePalletRequest{
		PalletNumber:    "P-200",
		PurchaseOrderID: order.ID,
		Products:        lines,
	})
	require.NoError(t, err)
	byLine := make(map[int64]int64, len(pallet.Products))
	for _, pp := range pallet.Products {
		byLine[pp.PurchaseOrderProductID] = pp.ID
	}
	first, second, third := byLine[order.Products[0].ID], byLine[order.Products[1].ID], byLine[order.Products[2].ID]

	s1, err := f.shipments.CreateShipment(ctx, appshipment.CreateShipmentRequest{
		ShipmentNumber: "S-1",
		Products: []appshipment.ShipmentLine{
			{PalletProductID: third, Quantity: 4},
			{PalletProductID: second, Quantity: 5},
		},
	})
	require.NoError(t, err)

	// adds the first line, grows the second and drops the third
	desired := []appshipment.ShipmentLine{
		{PalletProductID: second, Quantity: 8},
		{PalletProductID: first, Quantity: 6},
	}
	updated, err := f.shipments.UpdateShipment(ctx, s1.ID, appshipment.UpdateShipmentRequest{Products: &desired})
	require.NoError(t, err)
	assert.Len(t, updated.Products, 2)
	assert.Equal(t, 4, f.ledger.PalletProduct(first).AvailableQuantity)
	assert.Equal(t, 2, f.ledger.PalletProduct(second).AvailableQuantity)
	assert.Equal(t, 10, f.ledger.PalletProduct(third).AvailableQuantity)
	for i, p := range products {
		assert.Equal(t, []int{4, 2, 10}[i], f.ledger.WarehouseStock(p.ID))
	}
	f.ledger.AssertConservation()
}

func TestShipmentService_DeleteShipmentRestoresPallet(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	s1, err := f.shipments.CreateShipment(ctx, f.ship("S-1", "", 15))
	require.NoError(t, err)
	require.NoError(t, f.shipments.DeleteShipment(ctx, s1.ID))

	assert.Equal(t, 20, f.ledger.PalletProduct(f.ppID).AvailableQuantity)
	assert.Zero(t, f.ledger.Count(&shipment.OutgoingShipmentProduct{}))
	assert.Equal(t, 50, f.ledger.WarehouseStock(f.product.ID))

	require.NoError(t, f.pallets.DeletePallet(ctx, f.pallet.ID), "pallet is free once the shipment is gone")
	f.ledger.AssertConservation()
}

func TestShipmentService_SetLineChecked(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	s1, err := f.shipments.CreateShipment(ctx, f.ship("S-1", "", 3))
	require.NoError(t, err)

	require.NoError(t, f.shipments.SetLineChecked(ctx, s1.ID, f.ppID, true))
	got, err := f.shipments.GetShipment(ctx, s1.ID)
	require.NoError(t, err)
	assert.True(t, got.Products[0].IsChecked)
	assert.Equal(t, 17, f.ledger.PalletProduct(f.ppID).AvailableQuantity)

	assert.ErrorIs(t, f.shipments.SetLineChecked(ctx, s1.ID, 777, true), shared.ErrNotFound)
}

func TestShipmentService_Rejections(t *testing.T) {
	f := newShipmentFixture(t)
	ctx := testutil.ContextWithTimeout(t, 5*time.Second)

	_, err := f.shipments.CreateShipment(ctx, f.ship("S-1", "", 1))
	require.NoError(t, err)
	_, err = f.shipments.CreateShipment(ctx, f.ship("S-1", "", 1))
	assert.ErrorIs(t, err, shared.ErrDuplicateKey)

	missing := f.ship("S-2", "", 1)
	missing.Products[0].PalletProductID = 999
	_, err = f.shipments.CreateShipment(ctx, missing)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.shipments.CreateShipment(ctx, f.ship("", "", 1))
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))

	list, err := f.shipments.ListShipments(ctx, appshipment.ShipmentListFilter{Status: "draft"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	f.ledger.AssertConservation()
}
