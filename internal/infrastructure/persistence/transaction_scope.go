package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/purchasing"
	"github.com/erp/warehouse/internal/domain/shipment"
	"github.com/erp/warehouse/internal/domain/warehouse"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every ledger operation runs its reads, guarded updates and stock
// recalculation inside one Execute call.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos stock.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) PurchaseOrders() purchasing.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) PurchaseOrderProducts() purchasing.PurchaseOrderProductRepository {
	return NewGormPurchaseOrderProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Locations() warehouse.LocationRepository {
	return NewGormLocationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Pallets() warehouse.PalletRepository {
	return NewGormPalletRepository(r.tx)
}

func (r *gormTransactionalRepositories) PalletProducts() warehouse.PalletProductRepository {
	return NewGormPalletProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Shipments() shipment.OutgoingShipmentRepository {
	return NewGormOutgoingShipmentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Suppliers() catalog.SupplierRepository {
	return NewGormSupplierRepository(r.tx)
}

func (r *gormTransactionalRepositories) StockQuery() stock.QueryRepository {
	return NewGormStockQueryRepository(r.tx)
}

var (
	_ stock.TransactionScope          = (*GormTransactionScope)(nil)
	_ stock.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
