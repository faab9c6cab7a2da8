package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/purchasing"
	"github.com/erp/warehouse/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindByID finds a purchase order header by ID
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id int64) (*purchasing.PurchaseOrder, error) {
	var order purchasing.PurchaseOrder
	if err := r.db.WithContext(ctx).First(&order, id).Error; err != nil {
		return nil, translateError(err, "Purchase order")
	}
	return &order, nil
}

// FindByIDWithProducts loads the order and its line items ordered by ID
func (r *GormPurchaseOrderRepository) FindByIDWithProducts(ctx context.Context, id int64) (*purchasing.PurchaseOrder, error) {
	var order purchasing.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&order, id).Error
	if err != nil {
		return nil, translateError(err, "Purchase order")
	}
	return &order, nil
}

// ExistsByOrderNumber checks whether an order number is taken
func (r *GormPurchaseOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&purchasing.PurchaseOrder{}).
		Where("order_number = ?", orderNumber).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll lists purchase order headers
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter shared.Filter, activeOnly bool) ([]purchasing.PurchaseOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&purchasing.PurchaseOrder{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []purchasing.PurchaseOrder
	if err := paginate(query, filter, PurchaseOrderSortFields).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Create inserts the order and its line items
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, order *purchasing.PurchaseOrder) error {
	return translateError(r.db.WithContext(ctx).Create(order).Error, "Purchase order")
}

// UpdateStatus stores a new status
func (r *GormPurchaseOrderRepository) UpdateStatus(ctx context.Context, id int64, status purchasing.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&purchasing.PurchaseOrder{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Purchase order not found")
	}
	return nil
}

// Deactivate clears the active flag of the order and of every line
func (r *GormPurchaseOrderRepository) Deactivate(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&purchasing.PurchaseOrder{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Purchase order not found")
	}
	return db.Model(&purchasing.PurchaseOrderProduct{}).
		Where("purchase_order_id = ?", id).
		Update("is_active", false).Error
}

// GormPurchaseOrderProductRepository implements PurchaseOrderProductRepository.
// The availability counter is only changed by guarded single-statement updates.
type GormPurchaseOrderProductRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderProductRepository creates a new GormPurchaseOrderProductRepository
func NewGormPurchaseOrderProductRepository(db *gorm.DB) *GormPurchaseOrderProductRepository {
	return &GormPurchaseOrderProductRepository{db: db}
}

// FindByID finds a line item by ID
func (r *GormPurchaseOrderProductRepository) FindByID(ctx context.Context, id int64) (*purchasing.PurchaseOrderProduct, error) {
	var line purchasing.PurchaseOrderProduct
	if err := r.db.WithContext(ctx).First(&line, id).Error; err != nil {
		return nil, translateError(err, "Purchase order product")
	}
	return &line, nil
}

// FindByIDForUpdate reads a line item with SELECT ... FOR UPDATE
func (r *GormPurchaseOrderProductRepository) FindByIDForUpdate(ctx context.Context, id int64) (*purchasing.PurchaseOrderProduct, error) {
	var line purchasing.PurchaseOrderProduct
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&line, id).Error
	if err != nil {
		return nil, translateError(err, "Purchase order product")
	}
	return &line, nil
}

// ConsumeAvailable runs
//
//	UPDATE purchase_order_products SET quantity_available = quantity_available - q
//	WHERE id = ? AND quantity_available >= q
func (r *GormPurchaseOrderProductRepository) ConsumeAvailable(ctx context.Context, id int64, quantity int) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&purchasing.PurchaseOrderProduct{}).
		Where("id = ? AND quantity_available >= ?", id, quantity).
		Update("quantity_available", gorm.Expr("quantity_available - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	found, err := exists(db, &purchasing.PurchaseOrderProduct{}, id)
	if err != nil {
		return err
	}
	if !found {
		return shared.NewDomainError(shared.CodeNotFound, "Purchase order product not found")
	}
	return shared.NewDomainError(shared.CodeQuantityExceeded, "Requested quantity exceeds the purchase order product's available quantity")
}

// RestoreAvailable adds quantity back, refusing to exceed quantity_purchased
func (r *GormPurchaseOrderProductRepository) RestoreAvailable(ctx context.Context, id int64, quantity int) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&purchasing.PurchaseOrderProduct{}).
		Where("id = ? AND quantity_available + ? <= quantity_purchased", id, quantity).
		Update("quantity_available", gorm.Expr("quantity_available + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	found, err := exists(db, &purchasing.PurchaseOrderProduct{}, id)
	if err != nil {
		return err
	}
	if !found {
		return shared.NewDomainError(shared.CodeNotFound, "Purchase order product not found")
	}
	return shared.NewDomainError(shared.CodeLedgerInconsistent, "Restoring would exceed the purchased quantity")
}

// UpdateReceived stores received and missing quantities
func (r *GormPurchaseOrderProductRepository) UpdateReceived(ctx context.Context, id int64, received, missing int) error {
	res := r.db.WithContext(ctx).Model(&purchasing.PurchaseOrderProduct{}).
		Where("id = ?", id).
		Updates(map[string]any{"quantity_received": received, "quantity_missing": missing})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Purchase order product not found")
	}
	return nil
}

var (
	_ purchasing.PurchaseOrderRepository        = (*GormPurchaseOrderRepository)(nil)
	_ purchasing.PurchaseOrderProductRepository = (*GormPurchaseOrderProductRepository)(nil)
)
