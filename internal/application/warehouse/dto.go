package warehouse

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/warehouse"
)

// PalletLine requests quantity of a purchase order product on a pallet
type PalletLine struct {
	PurchaseOrderProductID int64 `json:"purchase_order_product_id" binding:"required,gt=0"`
	Quantity               int   `json:"quantity" binding:"required,gt=0"`
}

// CreatePalletRequest is the input of PalletService.CreatePallet
type CreatePalletRequest struct {
	PalletNumber        string       `json:"pallet_number" binding:"required,notblank,max=100"`
	WarehouseLocationID *int64       `json:"warehouse_location_id" binding:"omitempty,gt=0"`
	PurchaseOrderID     int64        `json:"purchase_order_id" binding:"required,gt=0"`
	Products            []PalletLine `json:"products" binding:"dive"`
}

// UpdatePalletRequest is the input of PalletService.UpdatePallet. Nil fields
// are left unchanged; Products, when set, is the complete desired line set.
type UpdatePalletRequest struct {
	PalletNumber        *string       `json:"pallet_number" binding:"omitempty,max=100"`
	WarehouseLocationID *int64        `json:"warehouse_location_id" binding:"omitempty,gt=0"`
	ClearLocation       bool          `json:"clear_location"`
	Products            *[]PalletLine `json:"products" binding:"omitempty,dive"`
}

// MovePalletRequest places a pallet in a location, or takes it out of its
// location when WarehouseLocationID is nil
type MovePalletRequest struct {
	WarehouseLocationID *int64 `json:"warehouse_location_id" binding:"omitempty,gt=0"`
}

// PalletListFilter is the input of PalletService.ListPallets
type PalletListFilter struct {
	PurchaseOrderID     *int64 `form:"purchase_order_id"`
	WarehouseLocationID *int64 `form:"warehouse_location_id"`
	Unplaced            bool   `form:"unplaced"`
	ActiveOnly          bool   `form:"active_only"`
	Page                int    `form:"page"`
	PageSize            int    `form:"page_size"`
}

// PalletProductResponse is a pallet line projection
type PalletProductResponse struct {
	ID                     int64 `json:"id"`
	PurchaseOrderProductID int64 `json:"purchase_order_product_id"`
	Quantity               int   `json:"quantity"`
	AvailableQuantity      int   `json:"available_quantity"`
}

// PalletResponse is the read projection of a pallet
type PalletResponse struct {
	ID                  int64                   `json:"id"`
	PalletNumber        string                  `json:"pallet_number"`
	WarehouseLocationID *int64                  `json:"warehouse_location_id"`
	PurchaseOrderID     int64                   `json:"purchase_order_id"`
	IsActive            bool                    `json:"is_active"`
	Products            []PalletProductResponse `json:"products"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// ToPalletResponse converts a pallet with its products
func ToPalletResponse(p *warehouse.Pallet) PalletResponse {
	products := make([]PalletProductResponse, 0, len(p.Products))
	for _, pp := range p.Products {
		products = append(products, PalletProductResponse{
			ID:                     pp.ID,
			PurchaseOrderProductID: pp.PurchaseOrderProductID,
			Quantity:               pp.Quantity,
			AvailableQuantity:      pp.AvailableQuantity,
		})
	}
	return PalletResponse{
		ID:                  p.ID,
		PalletNumber:        p.PalletNumber,
		WarehouseLocationID: p.WarehouseLocationID,
		PurchaseOrderID:     p.PurchaseOrderID,
		IsActive:            p.IsActive,
		Products:            products,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// CreateLocationRequest is the input of LocationService.CreateLocation
type CreateLocationRequest struct {
	Location string `json:"location" binding:"required,notblank,max=50"`
	Capacity int    `json:"capacity" binding:"required,gt=0"`
}

// LocationResponse is the read projection of a warehouse location
type LocationResponse struct {
	ID              int64     `json:"id"`
	Location        string    `json:"location"`
	Capacity        int       `json:"capacity"`
	CurrentCapacity int       `json:"current_capacity"`
	IsAvailable     bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToLocationResponse converts a warehouse location
func ToLocationResponse(l *warehouse.WarehouseLocation) LocationResponse {
	return LocationResponse{
		ID:              l.ID,
		Location:        l.Location,
		Capacity:        l.Capacity,
		CurrentCapacity: l.CurrentCapacity,
		IsAvailable:     l.IsAvailable(),
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func toLines(in []PalletLine) []warehouse.Line {
	lines := make([]warehouse.Line, 0, len(in))
	for _, l := range in {
		lines = append(lines, warehouse.Line{RefID: l.PurchaseOrderProductID, Quantity: l.Quantity})
	}
	return lines
}

func pageFilter(page, pageSize int) shared.Filter {
	return shared.Filter{Page: page, PageSize: pageSize}.Normalize()
}
