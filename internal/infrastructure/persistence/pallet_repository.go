package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/warehouse"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPalletRepository implements PalletRepository using GORM
type GormPalletRepository struct {
	db *gorm.DB
}

// NewGormPalletRepository creates a new GormPalletRepository
func NewGormPalletRepository(db *gorm.DB) *GormPalletRepository {
	return &GormPalletRepository{db: db}
}

func orderedPalletProducts(db *gorm.DB) *gorm.DB {
	return db.Order("purchase_order_product_id")
}

// FindByID loads a pallet with its products
func (r *GormPalletRepository) FindByID(ctx context.Context, id int64) (*warehouse.Pallet, error) {
	var pallet warehouse.Pallet
	err := r.db.WithContext(ctx).
		Preload("Products", orderedPalletProducts).
		First(&pallet, id).Error
	if err != nil {
		return nil, translateError(err, "Pallet")
	}
	return &pallet, nil
}

// FindByIDForUpdate locks the pallet row, then loads its products. Locking
// the header serializes every mutation of the same pallet.
func (r *GormPalletRepository) FindByIDForUpdate(ctx context.Context, id int64) (*warehouse.Pallet, error) {
	var pallet warehouse.Pallet
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pallet, id).Error; err != nil {
		return nil, translateError(err, "Pallet")
	}
	if err := orderedPalletProducts(db.Where("pallet_id = ?", id)).Find(&pallet.Products).Error; err != nil {
		return nil, err
	}
	return &pallet, nil
}

// ExistsByNumber checks whether a pallet number is taken
func (r *GormPalletRepository) ExistsByNumber(ctx context.Context, palletNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&warehouse.Pallet{}).
		Where("pallet_number = ?", palletNumber).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll lists pallets with their products
func (r *GormPalletRepository) FindAll(ctx context.Context, filter warehouse.PalletFilter) ([]warehouse.Pallet, int64, error) {
	query := r.db.WithContext(ctx).Model(&warehouse.Pallet{})
	if filter.PurchaseOrderID != nil {
		query = query.Where("purchase_order_id = ?", *filter.PurchaseOrderID)
	}
	switch {
	case filter.WarehouseLocationID != nil:
		query = query.Where("warehouse_location_id = ?", *filter.WarehouseLocationID)
	case filter.Unplaced:
		query = query.Where("warehouse_location_id IS NULL")
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var pallets []warehouse.Pallet
	err := paginate(query, filter.Filter, PalletSortFields).
		Preload("Products", orderedPalletProducts).
		Find(&pallets).Error
	if err != nil {
		return nil, 0, err
	}
	return pallets, total, nil
}

// Create inserts the pallet header only. Products are created through the
// ledger so that each allocation is checked.
func (r *GormPalletRepository) Create(ctx context.Context, pallet *warehouse.Pallet) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(pallet).Error
	return translateError(err, "Pallet")
}

// UpdateHeader stores the pallet number and location
func (r *GormPalletRepository) UpdateHeader(ctx context.Context, pallet *warehouse.Pallet) error {
	res := r.db.WithContext(ctx).Model(&warehouse.Pallet{}).
		Where("id = ?", pallet.ID).
		Updates(map[string]any{
			"pallet_number":         pallet.PalletNumber,
			"warehouse_location_id": pallet.WarehouseLocationID,
		})
	if res.Error != nil {
		return translateError(res.Error, "Pallet")
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Pallet not found")
	}
	return nil
}

// Delete removes the pallet header
func (r *GormPalletRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&warehouse.Pallet{}, id)
	if res.Error != nil {
		return translateError(res.Error, "Pallet")
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Pallet not found")
	}
	return nil
}

// GormPalletProductRepository implements PalletProductRepository using GORM
type GormPalletProductRepository struct {
	db *gorm.DB
}

// NewGormPalletProductRepository creates a new GormPalletProductRepository
func NewGormPalletProductRepository(db *gorm.DB) *GormPalletProductRepository {
	return &GormPalletProductRepository{db: db}
}

// FindByID finds a pallet product by ID
func (r *GormPalletProductRepository) FindByID(ctx context.Context, id int64) (*warehouse.PalletProduct, error) {
	var pp warehouse.PalletProduct
	if err := r.db.WithContext(ctx).First(&pp, id).Error; err != nil {
		return nil, translateError(err, "Pallet product")
	}
	return &pp, nil
}

// FindByIDForUpdate reads a pallet product with SELECT ... FOR UPDATE
func (r *GormPalletProductRepository) FindByIDForUpdate(ctx context.Context, id int64) (*warehouse.PalletProduct, error) {
	var pp warehouse.PalletProduct
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&pp, id).Error
	if err != nil {
		return nil, translateError(err, "Pallet product")
	}
	return &pp, nil
}

// FindByPallet lists the products of a pallet
func (r *GormPalletProductRepository) FindByPallet(ctx context.Context, palletID int64) ([]warehouse.PalletProduct, error) {
	var pps []warehouse.PalletProduct
	err := orderedPalletProducts(r.db.WithContext(ctx).Where("pallet_id = ?", palletID)).Find(&pps).Error
	return pps, err
}

// Create inserts a pallet product
func (r *GormPalletProductRepository) Create(ctx context.Context, pp *warehouse.PalletProduct) error {
	return translateError(r.db.WithContext(ctx).Create(pp).Error, "Pallet product")
}

// Resize stores the quantity pair, guarded so that the shipped part
// (quantity - available_quantity) is unchanged since it was read.
func (r *GormPalletProductRepository) Resize(ctx context.Context, pp *warehouse.PalletProduct) error {
	res := r.db.WithContext(ctx).Model(&warehouse.PalletProduct{}).
		Where("id = ? AND quantity - available_quantity = ?", pp.ID, pp.Shipped()).
		Updates(map[string]any{
			"quantity":           pp.Quantity,
			"available_quantity": pp.AvailableQuantity,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeLedgerInconsistent, "Pallet product changed while being resized")
	}
	return nil
}

// Delete removes a pallet product
func (r *GormPalletProductRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&warehouse.PalletProduct{}, id)
	if res.Error != nil {
		return translateError(res.Error, "Pallet product")
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Pallet product not found")
	}
	return nil
}

// DeleteByPallet removes every product of a pallet
func (r *GormPalletProductRepository) DeleteByPallet(ctx context.Context, palletID int64) error {
	err := r.db.WithContext(ctx).Where("pallet_id = ?", palletID).Delete(&warehouse.PalletProduct{}).Error
	return translateError(err, "Pallet product")
}

// ConsumeAvailable runs
//
//	UPDATE pallet_products SET available_quantity = available_quantity - q
//	WHERE id = ? AND available_quantity >= q
func (r *GormPalletProductRepository) ConsumeAvailable(ctx context.Context, id int64, quantity int) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&warehouse.PalletProduct{}).
		Where("id = ? AND available_quantity >= ?", id, quantity).
		Update("available_quantity", gorm.Expr("available_quantity - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	found, err := exists(db, &warehouse.PalletProduct{}, id)
	if err != nil {
		return err
	}
	if !found {
		return shared.NewDomainError(shared.CodeNotFound, "Pallet product not found")
	}
	return shared.NewDomainError(shared.CodeQuantityExceeded, "Requested quantity exceeds the pallet product's available quantity")
}

// RestoreAvailable adds quantity back, refusing to exceed quantity
func (r *GormPalletProductRepository) RestoreAvailable(ctx context.Context, id int64, quantity int) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&warehouse.PalletProduct{}).
		Where("id = ? AND available_quantity + ? <= quantity", id, quantity).
		Update("available_quantity", gorm.Expr("available_quantity + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	found, err := exists(db, &warehouse.PalletProduct{}, id)
	if err != nil {
		return err
	}
	if !found {
		return shared.NewDomainError(shared.CodeNotFound, "Pallet product not found")
	}
	return shared.NewDomainError(shared.CodeLedgerInconsistent, "Restoring would exceed the pallet product's quantity")
}

var (
	_ warehouse.PalletRepository        = (*GormPalletRepository)(nil)
	_ warehouse.PalletProductRepository = (*GormPalletProductRepository)(nil)
)
