package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shipment"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOutgoingShipmentRepository implements OutgoingShipmentRepository using GORM
type GormOutgoingShipmentRepository struct {
	db *gorm.DB
}

// NewGormOutgoingShipmentRepository creates a new GormOutgoingShipmentRepository
func NewGormOutgoingShipmentRepository(db *gorm.DB) *GormOutgoingShipmentRepository {
	return &GormOutgoingShipmentRepository{db: db}
}

func orderedShipmentLines(db *gorm.DB) *gorm.DB {
	return db.Order("pallet_product_id")
}

var errLineNotFound = shared.NewDomainError(shared.CodeNotFound, "Shipment line not found")

// FindByID loads a shipment with its lines
func (r *GormOutgoingShipmentRepository) FindByID(ctx context.Context, id int64) (*shipment.OutgoingShipment, error) {
	var s shipment.OutgoingShipment
	err := r.db.WithContext(ctx).
		Preload("Products", orderedShipmentLines).
		First(&s, id).Error
	if err != nil {
		return nil, translateError(err, "Outgoing shipment")
	}
	return &s, nil
}

// FindByIDForUpdate locks the shipment row, then loads its lines
func (r *GormOutgoingShipmentRepository) FindByIDForUpdate(ctx context.Context, id int64) (*shipment.OutgoingShipment, error) {
	var s shipment.OutgoingShipment
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, id).Error; err != nil {
		return nil, translateError(err, "Outgoing shipment")
	}
	if err := orderedShipmentLines(db.Where("outgoing_shipment_id = ?", id)).Find(&s.Products).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ExistsByNumber checks whether a shipment number is taken
func (r *GormOutgoingShipmentRepository) ExistsByNumber(ctx context.Context, shipmentNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&shipment.OutgoingShipment{}).
		Where("shipment_number = ?", shipmentNumber).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll lists shipments with their lines
func (r *GormOutgoingShipmentRepository) FindAll(ctx context.Context, filter shipment.ShipmentFilter) ([]shipment.OutgoingShipment, int64, error) {
	query := r.db.WithContext(ctx).Model(&shipment.OutgoingShipment{})
	if filter.Status != "" {
		query = query.Where("status = ?", shipment.NormalizeStatus(filter.Status))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var shipments []shipment.OutgoingShipment
	err := paginate(query, filter.Filter, ShipmentSortFields).
		Preload("Products", orderedShipmentLines).
		Find(&shipments).Error
	if err != nil {
		return nil, 0, err
	}
	return shipments, total, nil
}

// Create inserts the shipment header only; lines go through CreateLine
func (r *GormOutgoingShipmentRepository) Create(ctx context.Context, s *shipment.OutgoingShipment) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error
	return translateError(err, "Outgoing shipment")
}

// UpdateHeader stores number, status, shipment id and reference
func (r *GormOutgoingShipmentRepository) UpdateHeader(ctx context.Context, s *shipment.OutgoingShipment) error {
	res := r.db.WithContext(ctx).Model(&shipment.OutgoingShipment{}).
		Where("id = ?", s.ID).
		Updates(map[string]any{
			"shipment_number": s.ShipmentNumber,
			"status":          s.Status,
			"shipment_id":     s.ShipmentID,
			"reference":       s.Reference,
		})
	if res.Error != nil {
		return translateError(res.Error, "Outgoing shipment")
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Outgoing shipment not found")
	}
	return nil
}

// Delete removes the shipment header
func (r *GormOutgoingShipmentRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&shipment.OutgoingShipment{}, id)
	if res.Error != nil {
		return translateError(res.Error, "Outgoing shipment")
	}
	if res.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeNotFound, "Outgoing shipment not found")
	}
	return nil
}

// CreateLine inserts a shipment line
func (r *GormOutgoingShipmentRepository) CreateLine(ctx context.Context, line *shipment.OutgoingShipmentProduct) error {
	return translateError(r.db.WithContext(ctx).Create(line).Error, "Shipment line")
}

func (r *GormOutgoingShipmentRepository) line(ctx context.Context, shipmentID, palletProductID int64) *gorm.DB {
	return r.db.WithContext(ctx).Model(&shipment.OutgoingShipmentProduct{}).
		Where("outgoing_shipment_id = ? AND pallet_product_id = ?", shipmentID, palletProductID)
}

// UpdateLineQuantity stores a new line quantity
func (r *GormOutgoingShipmentRepository) UpdateLineQuantity(ctx context.Context, shipmentID, palletProductID int64, quantity int) error {
	res := r.line(ctx, shipmentID, palletProductID).Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errLineNotFound
	}
	return nil
}

// SetLineChecked flags a line as checked by warehouse staff
func (r *GormOutgoingShipmentRepository) SetLineChecked(ctx context.Context, shipmentID, palletProductID int64, checked bool) error {
	res := r.line(ctx, shipmentID, palletProductID).Update("is_checked", checked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errLineNotFound
	}
	return nil
}

// DeleteLine removes one line
func (r *GormOutgoingShipmentRepository) DeleteLine(ctx context.Context, shipmentID, palletProductID int64) error {
	res := r.db.WithContext(ctx).
		Where("outgoing_shipment_id = ? AND pallet_product_id = ?", shipmentID, palletProductID).
		Delete(&shipment.OutgoingShipmentProduct{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errLineNotFound
	}
	return nil
}

// DeleteLines removes every line of a shipment
func (r *GormOutgoingShipmentRepository) DeleteLines(ctx context.Context, shipmentID int64) error {
	return r.db.WithContext(ctx).
		Where("outgoing_shipment_id = ?", shipmentID).
		Delete(&shipment.OutgoingShipmentProduct{}).Error
}

// CountLinesByPalletProducts counts shipment lines referencing any of ids
func (r *GormOutgoingShipmentRepository) CountLinesByPalletProducts(ctx context.Context, palletProductIDs []int64) (int64, error) {
	if len(palletProductIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&shipment.OutgoingShipmentProduct{}).
		Where("pallet_product_id IN ?", palletProductIDs).
		Count(&count).Error
	return count, err
}

// SumShippedByPalletProduct sums shipped quantity over every shipment
func (r *GormOutgoingShipmentRepository) SumShippedByPalletProduct(ctx context.Context, palletProductID int64) (int, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&shipment.OutgoingShipmentProduct{}).
		Where("pallet_product_id = ?", palletProductID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error
	return int(sum), err
}

var _ shipment.OutgoingShipmentRepository = (*GormOutgoingShipmentRepository)(nil)
