package persistence_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/erp/warehouse/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseOrderProduct_ConsumeAvailable_GuardedUpdate(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormPurchaseOrderProductRepository(m.DB)

	m.Mock.ExpectExec(regexp.QuoteMeta(`UPDATE "purchase_order_products" SET "quantity_available"=quantity_available - $1`)+
		`.*`+regexp.QuoteMeta(`WHERE id = $3 AND quantity_available >= $4`)).
		WithArgs(int64(30), sqlmock.AnyArg(), int64(5), int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ConsumeAvailable(context.Background(), 5, 30))
	m.ExpectationsWereMet(t)
}

func TestPurchaseOrderProduct_ConsumeAvailable_Exceeded(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormPurchaseOrderProductRepository(m.DB)

	m.Mock.ExpectExec(`UPDATE "purchase_order_products"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	m.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "purchase_order_products" WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := repo.ConsumeAvailable(context.Background(), 5, 200)
	assert.ErrorIs(t, err, shared.ErrQuantityExceeded)
	m.ExpectationsWereMet(t)
}

func TestPurchaseOrderProduct_ConsumeAvailable_NotFound(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormPurchaseOrderProductRepository(m.DB)

	m.Mock.ExpectExec(`UPDATE "purchase_order_products"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	m.Mock.ExpectQuery(`SELECT count\(\*\) FROM "purchase_order_products"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := repo.ConsumeAvailable(context.Background(), 99, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	m.ExpectationsWereMet(t)
}

func TestPurchaseOrderProduct_RestoreAvailable_CappedAtPurchased(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormPurchaseOrderProductRepository(m.DB)

	m.Mock.ExpectExec(regexp.QuoteMeta(`SET "quantity_available"=quantity_available + $1`) +
		`.*` + regexp.QuoteMeta(`WHERE id = $3 AND quantity_available + $4 <= quantity_purchased`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	m.Mock.ExpectQuery(`SELECT count\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := repo.RestoreAvailable(context.Background(), 5, 10)
	assert.ErrorIs(t, err, shared.ErrLedgerInconsistent)
	m.ExpectationsWereMet(t)
}

func TestPurchaseOrderProduct_FindByIDForUpdate_Locks(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormPurchaseOrderProductRepository(m.DB)

	m.Mock.ExpectQuery(`SELECT \* FROM "purchase_order_products" WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "purchase_order_id", "product_id", "quantity_purchased", "quantity_available", "is_active"}).
			AddRow(5, 1, 2, 100, 40, true))

	pop, err := repo.FindByIDForUpdate(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 40, pop.QuantityAvailable)
	assert.Equal(t, 60, pop.Allocated())
	m.ExpectationsWereMet(t)
}

func TestPalletProduct_ConsumeAvailable_GuardedUpdate(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormPalletProductRepository(m.DB)

	m.Mock.ExpectExec(regexp.QuoteMeta(`UPDATE "pallet_products" SET "available_quantity"=available_quantity - $1`) +
		`.*` + regexp.QuoteMeta(`WHERE id = $3 AND available_quantity >= $4`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	m.Mock.ExpectQuery(`SELECT count\(\*\) FROM "pallet_products"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := repo.ConsumeAvailable(context.Background(), 3, 50)
	assert.ErrorIs(t, err, shared.ErrQuantityExceeded)
	m.ExpectationsWereMet(t)
}

func TestPalletProduct_RestoreAvailable_CappedAtQuantity(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormPalletProductRepository(m.DB)

	m.Mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $3 AND available_quantity + $4 <= quantity`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RestoreAvailable(context.Background(), 3, 5))
	m.ExpectationsWereMet(t)
}

func TestLocation_ReserveOne_GuardedDecrement(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormLocationRepository(m.DB)

	m.Mock.ExpectExec(regexp.QuoteMeta(`UPDATE "warehouse_locations" SET "current_capacity"=current_capacity - 1`) +
		`.*` + regexp.QuoteMeta(`WHERE id = $2 AND current_capacity > 0`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ReserveOne(context.Background(), 8))
	m.ExpectationsWereMet(t)
}

func TestLocation_ReserveOne_NoCapacity(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormLocationRepository(m.DB)

	m.Mock.ExpectExec(`UPDATE "warehouse_locations"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	m.Mock.ExpectQuery(`SELECT count\(\*\) FROM "warehouse_locations"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := repo.ReserveOne(context.Background(), 8)
	assert.ErrorIs(t, err, shared.ErrNoCapacity)
	m.ExpectationsWereMet(t)
}

func TestLocation_ReserveOne_NotFound(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormLocationRepository(m.DB)

	m.Mock.ExpectExec(`UPDATE "warehouse_locations"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	m.Mock.ExpectQuery(`SELECT count\(\*\) FROM "warehouse_locations"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := repo.ReserveOne(context.Background(), 8)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	m.ExpectationsWereMet(t)
}

func TestPallet_FindByIDForUpdate_LocksHeader(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormPalletRepository(m.DB)

	m.Mock.ExpectQuery(`SELECT \* FROM "pallets" WHERE .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pallet_number", "purchase_order_id", "is_active"}).
			AddRow(4, "P-4", 1, true))
	m.Mock.ExpectQuery(`SELECT \* FROM "pallet_products" WHERE pallet_id = \$1 ORDER BY purchase_order_product_id`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pallet_id", "purchase_order_product_id", "quantity", "available_quantity", "is_active"}).
			AddRow(10, 4, 1, 30, 30, true).
			AddRow(11, 4, 2, 20, 15, true))

	pallet, err := repo.FindByIDForUpdate(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, pallet.Products, 2)
	assert.Equal(t, 5, pallet.Products[1].Shipped())
	m.ExpectationsWereMet(t)
}

func TestShipment_SetLineChecked_MissingLine(t *testing.T) {
	m := testutil.NewMockDB(t)
	repo := persistence.NewGormOutgoingShipmentRepository(m.DB)

	m.Mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outgoing_shipment_products" SET "is_checked"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetLineChecked(context.Background(), 1, 2, true)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	m.ExpectationsWereMet(t)
}
