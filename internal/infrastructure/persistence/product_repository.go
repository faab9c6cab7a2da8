package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/catalog"
	"github.com/erp/warehouse/internal/domain/shared"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by ID
func (r *GormProductRepository) FindByID(ctx context.Context, id int64) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, translateError(err, "Product")
	}
	return &product, nil
}

// FindByASIN finds a product by its ASIN
func (r *GormProductRepository) FindByASIN(ctx context.Context, asin string) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).Where("asin = ?", asin).First(&product).Error; err != nil {
		return nil, translateError(err, "Product")
	}
	return &product, nil
}

// FindAll lists products
func (r *GormProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Product{})
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.InStock {
		query = query.Where("warehouse_stock > 0")
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var products []catalog.Product
	if err := paginate(query, filter.Filter, ProductSortFields).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListIDs returns every product ID in ascending order
func (r *GormProductRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&catalog.Product{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	db := r.db.WithContext(ctx)
	if product.IsNew() {
		return translateError(db.Create(product).Error, "Product")
	}
	return translateError(db.Save(product).Error, "Product")
}

// UpdateWarehouseStock overwrites the derived stock column only
func (r *GormProductRepository) UpdateWarehouseStock(ctx context.Context, id int64, stock int) error {
	res := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("id = ?", id).
		UpdateColumn("warehouse_stock", stock)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Product not found")
	}
	return nil
}

// GormSupplierRepository implements SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindByID finds a supplier by ID
func (r *GormSupplierRepository) FindByID(ctx context.Context, id int64) (*catalog.Supplier, error) {
	var supplier catalog.Supplier
	if err := r.db.WithContext(ctx).First(&supplier, id).Error; err != nil {
		return nil, translateError(err, "Supplier")
	}
	return &supplier, nil
}

// Save creates or updates a supplier
func (r *GormSupplierRepository) Save(ctx context.Context, supplier *catalog.Supplier) error {
	db := r.db.WithContext(ctx)
	if supplier.IsNew() {
		return translateError(db.Create(supplier).Error, "Supplier")
	}
	return translateError(db.Save(supplier).Error, "Supplier")
}

var (
	_ catalog.ProductRepository  = (*GormProductRepository)(nil)
	_ catalog.SupplierRepository = (*GormSupplierRepository)(nil)
)
