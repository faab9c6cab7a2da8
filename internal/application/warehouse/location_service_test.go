package warehouse_test

import (
	"context"
	"testing"

	appwarehouse "github.com/erp/warehouse/internal/application/warehouse"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newLocationService(t *testing.T) (*appwarehouse.LocationService, *testutil.Ledger) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	harness := testutil.NewStockHarness(t, db)
	return appwarehouse.NewLocationService(harness.Scope, zaptest.NewLogger(t)), testutil.NewLedger(t, db)
}

func TestLocationService_CreateLocation(t *testing.T) {
	svc, _ := newLocationService(t)
	ctx := context.Background()

	loc, err := svc.CreateLocation(ctx, appwarehouse.CreateLocationRequest{Location: " a1 ", Capacity: 3})
	require.NoError(t, err)
	assert.Equal(t, "A1", loc.Location)
	assert.Equal(t, 3, loc.CurrentCapacity)
	assert.True(t, loc.IsAvailable)

	_, err = svc.CreateLocation(ctx, appwarehouse.CreateLocationRequest{Location: "A1", Capacity: 1})
	assert.ErrorIs(t, err, shared.ErrDuplicateKey)

	_, err = svc.CreateLocation(ctx, appwarehouse.CreateLocationRequest{Location: "B1", Capacity: 0})
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
}

func TestLocationService_Availability(t *testing.T) {
	svc, ledger := newLocationService(t)
	ctx := context.Background()
	loc := ledger.Location(1)

	ok, err := svc.IsAvailable(ctx, loc.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, ledger.DB.Model(loc).Update("current_capacity", 0).Error)
	ok, err = svc.IsAvailable(ctx, loc.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.IsAvailable(ctx, 4040)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	page, err := svc.ListLocations(ctx, 1, 10, true)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	page, err = svc.ListLocations(ctx, 1, 10, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestLocationService_UpdateCapacity(t *testing.T) {
	svc, ledger := newLocationService(t)
	ctx := context.Background()
	loc := ledger.Location(4)
	require.NoError(t, ledger.DB.Model(loc).Update("current_capacity", 1).Error)

	resized, err := svc.UpdateCapacity(ctx, loc.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, resized.Capacity)
	assert.Equal(t, 3, resized.CurrentCapacity)

	_, err = svc.UpdateCapacity(ctx, loc.ID, 2)
	assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
	assert.Equal(t, 6, ledger.LocationRow(loc.ID).Capacity)
}

func TestLocationService_UpdateCapacity_RejectsInconsistentRow(t *testing.T) {
	svc, ledger := newLocationService(t)
	ctx := context.Background()
	loc := ledger.Location(2)
	require.NoError(t, ledger.DB.Model(loc).Update("current_capacity", 3).Error)

	_, err := svc.UpdateCapacity(ctx, loc.ID, 5)
	assert.ErrorIs(t, err, shared.ErrLedgerInconsistent)
	row := ledger.LocationRow(loc.ID)
	assert.Equal(t, 2, row.Capacity)
	assert.Equal(t, 3, row.CurrentCapacity)
}
