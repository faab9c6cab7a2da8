package shipment

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
)

// Known shipment statuses. Status is free-form; only StatusWorking has
// meaning to the stock calculation.
const (
	StatusDraft     = "DRAFT"
	StatusWorking   = "WORKING"
	StatusShipped   = "SHIPPED"
	StatusClosed    = "CLOSED"
	StatusCancelled = "CANCELLED"
)

// OutgoingShipment is a batch of units leaving the warehouse
type OutgoingShipment struct {
	shared.BaseEntity
	ShipmentNumber string                    `gorm:"type:varchar(100);not null;uniqueIndex" json:"shipment_number"`
	Status         string                    `gorm:"type:varchar(40);not null;default:'DRAFT';index" json:"status"`
	ShipmentID     *string                   `gorm:"type:varchar(100)" json:"shipment_id,omitempty"`
	Reference      *string                   `gorm:"type:varchar(200)" json:"reference,omitempty"`
	Products       []OutgoingShipmentProduct `gorm:"foreignKey:OutgoingShipmentID" json:"products,omitempty"`
}

// TableName returns the table name for GORM
func (OutgoingShipment) TableName() string {
	return "outgoing_shipments"
}

// NewOutgoingShipment creates a shipment, defaulting the status to DRAFT
func NewOutgoingShipment(shipmentNumber, status string, shipmentID, reference *string) (*OutgoingShipment, error) {
	shipmentNumber = strings.TrimSpace(shipmentNumber)
	if shipmentNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Shipment number cannot be empty")
	}
	return &OutgoingShipment{
		ShipmentNumber: shipmentNumber,
		Status:         NormalizeStatus(status),
		ShipmentID:     shipmentID,
		Reference:      reference,
	}, nil
}

// NormalizeStatus upper-cases a status, defaulting blanks to DRAFT
func NormalizeStatus(status string) string {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		return StatusDraft
	}
	return status
}

// CountsAsWarehouseStock reports whether units on this shipment still sit
// in the warehouse for stock purposes.
func (s *OutgoingShipment) CountsAsWarehouseStock() bool {
	return s.Status == StatusWorking
}

// OutgoingShipmentProduct ships quantity out of one pallet product. It is the
// third ledger stage and references the pallet product by id only.
type OutgoingShipmentProduct struct {
	shared.BaseEntity
	OutgoingShipmentID int64 `gorm:"not null;index;uniqueIndex:idx_shipment_pallet_product,priority:1" json:"outgoing_shipment_id"`
	PalletProductID    int64 `gorm:"not null;index;uniqueIndex:idx_shipment_pallet_product,priority:2" json:"pallet_product_id"`
	Quantity           int   `gorm:"not null" json:"quantity"`
	IsChecked          bool  `gorm:"not null;default:false" json:"is_checked"`
}

// TableName returns the table name for GORM
func (OutgoingShipmentProduct) TableName() string {
	return "outgoing_shipment_products"
}

// NewOutgoingShipmentProduct creates an unchecked shipment line
func NewOutgoingShipmentProduct(shipmentID, palletProductID int64, quantity int) (*OutgoingShipmentProduct, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Shipment quantity must be positive")
	}
	return &OutgoingShipmentProduct{
		OutgoingShipmentID: shipmentID,
		PalletProductID:    palletProductID,
		Quantity:           quantity,
	}, nil
}
