package purchasing

import (
	"time"

	"github.com/erp/warehouse/internal/domain/purchasing"
	"github.com/shopspring/decimal"
)

// OrderLineRequest is one product line of a new purchase order
type OrderLineRequest struct {
	ProductID   int64           `json:"product_id" binding:"required,gt=0"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ProductCost decimal.Decimal `json:"product_cost"`
}

// CreatePurchaseOrderRequest is the input of CreatePurchaseOrder
type CreatePurchaseOrderRequest struct {
	OrderNumber string             `json:"order_number" binding:"required,notblank,max=100"`
	SupplierID  int64              `json:"supplier_id" binding:"required,gt=0"`
	Notes       string             `json:"notes" binding:"max=2000"`
	Products    []OrderLineRequest `json:"products" binding:"required,min=1,dive"`
}

// OrderLineResponse is a purchase order line projection
type OrderLineResponse struct {
	ID                int64           `json:"id"`
	ProductID         int64           `json:"product_id"`
	QuantityPurchased int             `json:"quantity_purchased"`
	QuantityReceived  int             `json:"quantity_received"`
	QuantityMissing   int             `json:"quantity_missing"`
	QuantityAvailable int             `json:"quantity_available"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	ProductCost       decimal.Decimal `json:"product_cost"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	IsActive          bool            `json:"is_active"`
}

// PurchaseOrderResponse is the read projection of a purchase order
type PurchaseOrderResponse struct {
	ID          int64               `json:"id"`
	OrderNumber string              `json:"order_number"`
	SupplierID  int64               `json:"supplier_id"`
	Status      string              `json:"status"`
	TotalPrice  decimal.Decimal     `json:"total_price"`
	IsActive    bool                `json:"is_active"`
	Notes       string              `json:"notes"`
	Products    []OrderLineResponse `json:"products"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// ToPurchaseOrderResponse converts a purchase order with its lines
func ToPurchaseOrderResponse(po *purchasing.PurchaseOrder) PurchaseOrderResponse {
	lines := make([]OrderLineResponse, 0, len(po.Products))
	for _, p := range po.Products {
		lines = append(lines, ToOrderLineResponse(&p))
	}
	return PurchaseOrderResponse{
		ID:          po.ID,
		OrderNumber: po.OrderNumber,
		SupplierID:  po.SupplierID,
		Status:      string(po.Status),
		TotalPrice:  po.TotalPrice,
		IsActive:    po.IsActive,
		Notes:       po.Notes,
		Products:    lines,
		CreatedAt:   po.CreatedAt,
		UpdatedAt:   po.UpdatedAt,
	}
}

// ToOrderLineResponse converts a purchase order line
func ToOrderLineResponse(p *purchasing.PurchaseOrderProduct) OrderLineResponse {
	return OrderLineResponse{
		ID:                p.ID,
		ProductID:         p.ProductID,
		QuantityPurchased: p.QuantityPurchased,
		QuantityReceived:  p.QuantityReceived,
		QuantityMissing:   p.QuantityMissing,
		QuantityAvailable: p.QuantityAvailable,
		UnitPrice:         p.UnitPrice,
		ProductCost:       p.ProductCost,
		TotalAmount:       p.TotalAmount,
		IsActive:          p.IsActive,
	}
}
