package shipment

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
)

// ShipmentFilter narrows shipment listings
type ShipmentFilter struct {
	shared.Filter
	Status string
}

// OutgoingShipmentRepository persists shipments and their lines
type OutgoingShipmentRepository interface {
	FindByID(ctx context.Context, id int64) (*OutgoingShipment, error)
	// FindByIDForUpdate loads the shipment and its lines under a row lock
	FindByIDForUpdate(ctx context.Context, id int64) (*OutgoingShipment, error)
	ExistsByNumber(ctx context.Context, shipmentNumber string) (bool, error)
	FindAll(ctx context.Context, filter ShipmentFilter) ([]OutgoingShipment, int64, error)
	Create(ctx context.Context, s *OutgoingShipment) error
	// UpdateHeader stores number, status, shipment id and reference
	UpdateHeader(ctx context.Context, s *OutgoingShipment) error
	Delete(ctx context.Context, id int64) error

	CreateLine(ctx context.Context, line *OutgoingShipmentProduct) error
	UpdateLineQuantity(ctx context.Context, shipmentID, palletProductID int64, quantity int) error
	SetLineChecked(ctx context.Context, shipmentID, palletProductID int64, checked bool) error
	DeleteLine(ctx context.Context, shipmentID, palletProductID int64) error
	DeleteLines(ctx context.Context, shipmentID int64) error
	// CountLinesByPalletProducts counts shipment lines referencing any of ids
	CountLinesByPalletProducts(ctx context.Context, palletProductIDs []int64) (int64, error)
	// SumShippedByPalletProduct sums shipped quantity over every shipment
	SumShippedByPalletProduct(ctx context.Context, palletProductID int64) (int, error)
}
