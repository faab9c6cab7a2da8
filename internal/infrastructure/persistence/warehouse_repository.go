package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/warehouse"
	"gorm.io/gorm"
)

// GormLocationRepository implements LocationRepository using GORM
type GormLocationRepository struct {
	db *gorm.DB
}

// NewGormLocationRepository creates a new GormLocationRepository
func NewGormLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// FindByID finds a location by ID
func (r *GormLocationRepository) FindByID(ctx context.Context, id int64) (*warehouse.WarehouseLocation, error) {
	var loc warehouse.WarehouseLocation
	if err := r.db.WithContext(ctx).First(&loc, id).Error; err != nil {
		return nil, translateError(err, "Warehouse location")
	}
	return &loc, nil
}

// ExistsByCode checks whether a location code is taken
func (r *GormLocationRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&warehouse.WarehouseLocation{}).
		Where("location = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll lists locations, optionally only those with a free slot
func (r *GormLocationRepository) FindAll(ctx context.Context, filter shared.Filter, availableOnly bool) ([]warehouse.WarehouseLocation, int64, error) {
	query := r.db.WithContext(ctx).Model(&warehouse.WarehouseLocation{})
	if availableOnly {
		query = query.Where("current_capacity > 0")
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var locs []warehouse.WarehouseLocation
	if err := paginate(query, filter, LocationSortFields).Find(&locs).Error; err != nil {
		return nil, 0, err
	}
	return locs, total, nil
}

// Create inserts a location
func (r *GormLocationRepository) Create(ctx context.Context, location *warehouse.WarehouseLocation) error {
	return translateError(r.db.WithContext(ctx).Create(location).Error, "Warehouse location")
}

// UpdateCapacity stores a resized location. The occupied slot count is
// re-checked in SQL so that a concurrent placement cannot be lost.
func (r *GormLocationRepository) UpdateCapacity(ctx context.Context, location *warehouse.WarehouseLocation) error {
	res := r.db.WithContext(ctx).Model(&warehouse.WarehouseLocation{}).
		Where("id = ? AND capacity - current_capacity <= ?", location.ID, location.Capacity).
		Updates(map[string]any{
			"capacity":         location.Capacity,
			"current_capacity": gorm.Expr("? - (capacity - current_capacity)", location.Capacity),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Location capacity cannot drop below the number of placed pallets")
	}
	return nil
}

// ReserveOne takes one slot:
//
//	UPDATE warehouse_locations SET current_capacity = current_capacity - 1
//	WHERE id = ? AND current_capacity > 0
func (r *GormLocationRepository) ReserveOne(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&warehouse.WarehouseLocation{}).
		Where("id = ? AND current_capacity > 0", id).
		Update("current_capacity", gorm.Expr("current_capacity - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	found, err := exists(db, &warehouse.WarehouseLocation{}, id)
	if err != nil {
		return err
	}
	if !found {
		return shared.NewDomainError(shared.CodeNotFound, "Warehouse location not found")
	}
	return shared.NewDomainError(shared.CodeNoCapacity, "Warehouse location has no remaining capacity")
}

// ReleaseOne frees one slot
func (r *GormLocationRepository) ReleaseOne(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&warehouse.WarehouseLocation{}).
		Where("id = ?", id).
		Update("current_capacity", gorm.Expr("current_capacity + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Warehouse location not found")
	}
	return nil
}

var _ warehouse.LocationRepository = (*GormLocationRepository)(nil)
