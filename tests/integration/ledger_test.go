//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	appshipment "github.com/erp/warehouse/internal/application/shipment"
	appwarehouse "github.com/erp/warehouse/internal/application/warehouse"
	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shipment"
	"github.com/erp/warehouse/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type services struct {
	ledger    *testutil.Ledger
	harness   *testutil.StockHarness
	pallets   *appwarehouse.PalletService
	shipments *appshipment.ShipmentService
}

func newServices(t *testing.T) *services {
	tdb := NewTestDB(t)
	harness := testutil.NewStockHarness(t, tdb.DB)
	log := zaptest.NewLogger(t)
	return &services{
		ledger:    testutil.NewLedger(t, tdb.DB),
		harness:   harness,
		pallets:   appwarehouse.NewPalletService(harness.Scope, harness.Recalculator, nil, log),
		shipments: appshipment.NewShipmentService(harness.Scope, harness.Recalculator, nil, log),
	}
}

// collect runs fn n times concurrently and returns the errors in no order
func collect(n int, fn func(i int) error) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := fn(i)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	return errs
}

func countOutcomes(t *testing.T, errs []error, rejected string) (ok, refused int) {
	t.Helper()
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case shared.HasCode(err, rejected):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return ok, refused
}

func TestLedger_StockLifecycle(t *testing.T) {
	s := newServices(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	product := s.ledger.Product()
	order := s.ledger.PurchaseOrder([]*catalog.Product{product}, 40)
	loc := s.ledger.Location(2)

	pallet, err := s.pallets.CreatePallet(ctx, appwarehouse.CreatePalletRequest{
		PalletNumber:        "PLT-1",
		WarehouseLocationID: &loc.ID,
		PurchaseOrderID:     order.ID,
		Products: []appwarehouse.PalletLine{
			{PurchaseOrderProductID: order.Products[0].ID, Quantity: 30},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, s.ledger.OrderLine(order.Products[0].ID).QuantityAvailable)
	assert.Equal(t, 1, s.ledger.LocationRow(loc.ID).CurrentCapacity)
	assert.Equal(t, 40, s.ledger.WarehouseStock(product.ID))

	ppID := pallet.Products[0].ID
	out, err := s.shipments.CreateShipment(ctx, appshipment.CreateShipmentRequest{
		ShipmentNumber: "OUT-1",
		Status:         shipment.StatusWorking,
		Products:       []appshipment.ShipmentLine{{PalletProductID: ppID, Quantity: 12}},
	})
	require.NoError(t, err)
	assert.Equal(t, 18, s.ledger.PalletProduct(ppID).AvailableQuantity)
	assert.Equal(t, 40, s.ledger.WarehouseStock(product.ID), "working shipments still count as stock")

	_, err = s.shipments.UpdateStatus(ctx, out.ID, shipment.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, 28, s.ledger.WarehouseStock(product.ID))

	_, err = s.shipments.CreateShipment(ctx, appshipment.CreateShipmentRequest{
		ShipmentNumber: "OUT-2",
		Products:       []appshipment.ShipmentLine{{PalletProductID: ppID, Quantity: 19}},
	})
	assert.True(t, shared.HasCode(err, shared.CodeQuantityExceeded))

	require.NoError(t, s.shipments.DeleteShipment(ctx, out.ID))
	assert.Equal(t, 30, s.ledger.PalletProduct(ppID).AvailableQuantity)
	assert.Equal(t, 40, s.ledger.WarehouseStock(product.ID))

	require.NoError(t, s.pallets.DeletePallet(ctx, pallet.ID))
	assert.Equal(t, 40, s.ledger.OrderLine(order.Products[0].ID).QuantityAvailable)
	assert.Equal(t, 2, s.ledger.LocationRow(loc.ID).CurrentCapacity)
	s.ledger.AssertConservation()
}

func TestLedger_ConcurrentShipmentsNeverOversell(t *testing.T) {
	s := newServices(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	product := s.ledger.Product()
	order := s.ledger.PurchaseOrder([]*catalog.Product{product}, 10)
	pallet, err := s.pallets.CreatePallet(ctx, appwarehouse.CreatePalletRequest{
		PalletNumber:    "PLT-RACE",
		PurchaseOrderID: order.ID,
		Products: []appwarehouse.PalletLine{
			{PurchaseOrderProductID: order.Products[0].ID, Quantity: 10},
		},
	})
	require.NoError(t, err)
	ppID := pallet.Products[0].ID

	errs := collect(20, func(i int) error {
		_, err := s.shipments.CreateShipment(ctx, appshipment.CreateShipmentRequest{
			ShipmentNumber: fmt.Sprintf("RACE-%02d", i),
			Products:       []appshipment.ShipmentLine{{PalletProductID: ppID, Quantity: 1}},
		})
		return err
	})

	ok, refused := countOutcomes(t, errs, shared.CodeQuantityExceeded)
	assert.Equal(t, 10, ok)
	assert.Equal(t, 10, refused)
	assert.Zero(t, s.ledger.PalletProduct(ppID).AvailableQuantity)
	s.ledger.AssertConservation()
}

func TestLedger_ConcurrentPalletsShareOrderLine(t *testing.T) {
	s := newServices(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	product := s.ledger.Product()
	order := s.ledger.PurchaseOrder([]*catalog.Product{product}, 50)
	popID := order.Products[0].ID

	errs := collect(10, func(i int) error {
		_, err := s.pallets.CreatePallet(ctx, appwarehouse.CreatePalletRequest{
			PalletNumber:    fmt.Sprintf("PLT-%02d", i),
			PurchaseOrderID: order.ID,
			Products:        []appwarehouse.PalletLine{{PurchaseOrderProductID: popID, Quantity: 8}},
		})
		return err
	})

	ok, refused := countOutcomes(t, errs, shared.CodeQuantityExceeded)
	assert.Equal(t, 6, ok)
	assert.Equal(t, 4, refused)
	assert.Equal(t, 2, s.ledger.OrderLine(popID).QuantityAvailable)
	assert.Equal(t, 50, s.ledger.WarehouseStock(product.ID))
	s.ledger.AssertConservation()
}

func TestLedger_ConcurrentPlacementRespectsCapacity(t *testing.T) {
	s := newServices(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	product := s.ledger.Product()
	order := s.ledger.PurchaseOrder([]*catalog.Product{product}, 100)
	loc := s.ledger.Location(3)

	errs := collect(8, func(i int) error {
		_, err := s.pallets.CreatePallet(ctx, appwarehouse.CreatePalletRequest{
			PalletNumber:        fmt.Sprintf("SLOT-%02d", i),
			WarehouseLocationID: &loc.ID,
			PurchaseOrderID:     order.ID,
			Products: []appwarehouse.PalletLine{
				{PurchaseOrderProductID: order.Products[0].ID, Quantity: 1},
			},
		})
		return err
	})

	ok, refused := countOutcomes(t, errs, shared.CodeNoCapacity)
	assert.Equal(t, 3, ok)
	assert.Equal(t, 5, refused)
	assert.Zero(t, s.ledger.LocationRow(loc.ID).CurrentCapacity)
	s.ledger.AssertConservation()
}

func TestLedger_SchemaRejectsNegativeAvailability(t *testing.T) {
	s := newServices(t)
	product := s.ledger.Product()
	order := s.ledger.PurchaseOrder([]*catalog.Product{product}, 5)

	err := s.ledger.DB.Exec(
		"UPDATE purchase_order_products SET quantity_available = -1 WHERE id = ?",
		order.Products[0].ID,
	).Error
	assert.Error(t, err, "CHECK constraint must reject negative availability")
}
