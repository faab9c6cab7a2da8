package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/purchasing"
	"github.com/erp/warehouse/internal/domain/shipment"
	"github.com/erp/warehouse/internal/domain/warehouse"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixtureSeq atomic.Int64

func nextCode(prefix string) string {
	return fmt.Sprintf("%s-%04d", prefix, fixtureSeq.Add(1))
}

// Ledger seeds ledger rows directly, bypassing the services, so that tests
// can arrange any starting state.
type Ledger struct {
	t  *testing.T
	DB *gorm.DB
}

// NewLedger wraps db for seeding
func NewLedger(t *testing.T, db *gorm.DB) *Ledger {
	return &Ledger{t: t, DB: db}
}

// Supplier inserts a supplier
func (l *Ledger) Supplier() *catalog.Supplier {
	l.t.Helper()
	s, err := catalog.NewSupplier(nextCode("Supplier"), "", "")
	require.NoError(l.t, err)
	require.NoError(l.t, l.DB.Create(s).Error)
	return s
}

// Product inserts a product
func (l *Ledger) Product() *catalog.Product {
	l.t.Helper()
	p, err := catalog.NewProduct(nextCode("B0"), nextCode("SKU"), "Test product", nil)
	require.NoError(l.t, err)
	require.NoError(l.t, l.DB.Create(p).Error)
	return p
}

// PurchaseOrder inserts an order with one line per quantity, each line for
// the matching product.
func (l *Ledger) PurchaseOrder(products []*catalog.Product, quantities ...int) *purchasing.PurchaseOrder {
	l.t.Helper()
	require.Len(l.t, quantities, len(products))
	supplier := l.Supplier()
	po, err := purchasing.NewPurchaseOrder(nextCode("PO"), supplier.ID, "")
	require.NoError(l.t, err)
	for i, p := range products {
		require.NoError(l.t, po.AddProduct(p.ID, quantities[i], decimal.NewFromInt(10), decimal.NewFromInt(6)))
	}
	require.NoError(l.t, l.DB.Create(po).Error)
	return po
}

// Location inserts an empty location
func (l *Ledger) Location(capacity int) *warehouse.WarehouseLocation {
	l.t.Helper()
	loc, err := warehouse.NewWarehouseLocation(nextCode("LOC"), capacity)
	require.NoError(l.t, err)
	require.NoError(l.t, l.DB.Create(loc).Error)
	return loc
}

// Shipment inserts an empty shipment with the given status
func (l *Ledger) Shipment(status string) *shipment.OutgoingShipment {
	l.t.Helper()
	s, err := shipment.NewOutgoingShipment(nextCode("SHIP"), status, nil, nil)
	require.NoError(l.t, err)
	require.NoError(l.t, l.DB.Create(s).Error)
	return s
}

// OrderLine reloads a purchase order product
func (l *Ledger) OrderLine(id int64) purchasing.PurchaseOrderProduct {
	l.t.Helper()
	var pop purchasing.PurchaseOrderProduct
	require.NoError(l.t, l.DB.First(&pop, id).Error)
	return pop
}

// PalletProduct reloads a pallet product
func (l *Ledger) PalletProduct(id int64) warehouse.PalletProduct {
	l.t.Helper()
	var pp warehouse.PalletProduct
	require.NoError(l.t, l.DB.First(&pp, id).Error)
	return pp
}

// LocationRow reloads a location
func (l *Ledger) LocationRow(id int64) warehouse.WarehouseLocation {
	l.t.Helper()
	var loc warehouse.WarehouseLocation
	require.NoError(l.t, l.DB.First(&loc, id).Error)
	return loc
}

// WarehouseStock reads the cached stock of a product
func (l *Ledger) WarehouseStock(productID int64) int {
	l.t.Helper()
	var p catalog.Product
	require.NoError(l.t, l.DB.First(&p, productID).Error)
	return p.WarehouseStock
}

// Count returns the number of rows of model
func (l *Ledger) Count(model any) int64 {
	l.t.Helper()
	var n int64
	require.NoError(l.t, l.DB.Model(model).Count(&n).Error)
	return n
}

// AssertConservation checks, for every purchase order product, that
// purchased = available + allocated to pallets, and for every pallet product
// that quantity = available + shipped.
func (l *Ledger) AssertConservation() {
	l.t.Helper()

	var pops []purchasing.PurchaseOrderProduct
	require.NoError(l.t, l.DB.Find(&pops).Error)
	for _, pop := range pops {
		var allocated int64
		require.NoError(l.t, l.DB.Model(&warehouse.PalletProduct{}).
			Where("purchase_order_product_id = ?", pop.ID).
			Select("COALESCE(SUM(quantity), 0)").Scan(&allocated).Error)
		require.Equal(l.t, pop.QuantityPurchased, pop.QuantityAvailable+int(allocated),
			"purchase order product %d does not conserve quantity", pop.ID)
		require.NoError(l.t, pop.CheckInvariant())
	}

	var pps []warehouse.PalletProduct
	require.NoError(l.t, l.DB.Find(&pps).Error)
	for _, pp := range pps {
		var shipped int64
		require.NoError(l.t, l.DB.Model(&shipment.OutgoingShipmentProduct{}).
			Where("pallet_product_id = ?", pp.ID).
			Select("COALESCE(SUM(quantity), 0)").Scan(&shipped).Error)
		require.Equal(l.t, pp.Quantity, pp.AvailableQuantity+int(shipped),
			"pallet product %d does not conserve quantity", pp.ID)
		require.NoError(l.t, pp.CheckInvariant())
	}

	var locs []warehouse.WarehouseLocation
	require.NoError(l.t, l.DB.Find(&locs).Error)
	for _, loc := range locs {
		var placed int64
		require.NoError(l.t, l.DB.Model(&warehouse.Pallet{}).
			Where("warehouse_location_id = ?", loc.ID).Count(&placed).Error)
		require.Equal(l.t, loc.Capacity-int(placed), loc.CurrentCapacity,
			"location %s capacity does not match placed pallets", loc.Location)
	}
}
