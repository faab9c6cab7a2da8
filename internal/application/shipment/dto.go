package shipment

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shipment"
	"github.com/erp/warehouse/internal/domain/warehouse"
)

// ShipmentLine requests quantity out of a pallet product
type ShipmentLine struct {
	PalletProductID int64 `json:"pallet_product_id" binding:"required,gt=0"`
	Quantity        int   `json:"quantity" binding:"required,gt=0"`
}

// CreateShipmentRequest is the input of ShipmentService.CreateShipment
type CreateShipmentRequest struct {
	ShipmentNumber string         `json:"shipment_number" binding:"required,notblank,max=100"`
	Status         string         `json:"status" binding:"omitempty,max=40"`
	ShipmentID     *string        `json:"shipment_id" binding:"omitempty,max=100"`
	Reference      *string        `json:"reference" binding:"omitempty,max=200"`
	Products       []ShipmentLine `json:"products" binding:"dive"`
}

// UpdateShipmentRequest is the input of ShipmentService.UpdateShipment.
// Products, when set, replaces the complete line set.
type UpdateShipmentRequest struct {
	ShipmentNumber *string         `json:"shipment_number" binding:"omitempty,max=100"`
	Status         *string         `json:"status" binding:"omitempty,max=40"`
	ShipmentID     *string         `json:"shipment_id" binding:"omitempty,max=100"`
	Reference      *string         `json:"reference" binding:"omitempty,max=200"`
	Products       *[]ShipmentLine `json:"products" binding:"omitempty,dive"`
}

// ShipmentListFilter is the input of ShipmentService.ListShipments
type ShipmentListFilter struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ShipmentProductResponse is a shipment line projection
type ShipmentProductResponse struct {
	ID              int64 `json:"id"`
	PalletProductID int64 `json:"pallet_product_id"`
	Quantity        int   `json:"quantity"`
	IsChecked       bool  `json:"is_checked"`
}

// ShipmentResponse is the read projection of an outgoing shipment
type ShipmentResponse struct {
	ID             int64                     `json:"id"`
	ShipmentNumber string                    `json:"shipment_number"`
	Status         string                    `json:"status"`
	ShipmentID     *string                   `json:"shipment_id,omitempty"`
	Reference      *string                   `json:"reference,omitempty"`
	Products       []ShipmentProductResponse `json:"products"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// ToShipmentResponse converts a shipment with its lines
func ToShipmentResponse(s *shipment.OutgoingShipment) ShipmentResponse {
	products := make([]ShipmentProductResponse, 0, len(s.Products))
	for _, line := range s.Products {
		products = append(products, ShipmentProductResponse{
			ID:              line.ID,
			PalletProductID: line.PalletProductID,
			Quantity:        line.Quantity,
			IsChecked:       line.IsChecked,
		})
	}
	return ShipmentResponse{
		ID:             s.ID,
		ShipmentNumber: s.ShipmentNumber,
		Status:         s.Status,
		ShipmentID:     s.ShipmentID,
		Reference:      s.Reference,
		Products:       products,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func toLines(in []ShipmentLine) []warehouse.Line {
	lines := make([]warehouse.Line, 0, len(in))
	for _, l := range in {
		lines = append(lines, warehouse.Line{RefID: l.PalletProductID, Quantity: l.Quantity})
	}
	return lines
}
