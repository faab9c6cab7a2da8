package purchasing

import (
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PurchaseOrderProduct is one product line of a purchase order and the first
// stage of the quantity ledger: QuantityAvailable is what is still free to be
// allocated onto pallets.
type PurchaseOrderProduct struct {
	shared.BaseEntity
	PurchaseOrderID   int64           `gorm:"not null;index" json:"purchase_order_id"`
	ProductID         int64           `gorm:"not null;index" json:"product_id"`
	QuantityPurchased int             `gorm:"not null" json:"quantity_purchased"`
	QuantityReceived  int             `gorm:"not null;default:0" json:"quantity_received"`
	QuantityMissing   int             `gorm:"not null;default:0" json:"quantity_missing"`
	QuantityAvailable int             `gorm:"not null" json:"quantity_available"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"unit_price"`
	ProductCost       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"product_cost"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_amount"`
	IsActive          bool            `gorm:"not null;default:true" json:"is_active"`
}

// TableName returns the table name for GORM
func (PurchaseOrderProduct) TableName() string {
	return "purchase_order_products"
}

// NewPurchaseOrderProduct creates a line whose whole purchased quantity is
// available for allocation.
func NewPurchaseOrderProduct(productID int64, quantity int, unitPrice, productCost decimal.Decimal) (*PurchaseOrderProduct, error) {
	if productID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product is required")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Purchased quantity must be positive")
	}
	if unitPrice.IsNegative() || productCost.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Prices cannot be negative")
	}
	return &PurchaseOrderProduct{
		ProductID:         productID,
		QuantityPurchased: quantity,
		QuantityMissing:   quantity,
		QuantityAvailable: quantity,
		UnitPrice:         unitPrice,
		ProductCost:       productCost,
		TotalAmount:       unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		IsActive:          true,
	}, nil
}

// Allocated returns the quantity currently placed on pallets
func (p *PurchaseOrderProduct) Allocated() int {
	return p.QuantityPurchased - p.QuantityAvailable
}

// RecordReceived stores how many units arrived from the supplier
func (p *PurchaseOrderProduct) RecordReceived(received int) error {
	if received < 0 || received > p.QuantityPurchased {
		return shared.NewDomainError(shared.CodeInvalidInput, "Received quantity must be between 0 and the purchased quantity")
	}
	p.QuantityReceived = received
	p.QuantityMissing = p.QuantityPurchased - received
	return nil
}

// CheckInvariant verifies 0 <= available <= purchased
func (p *PurchaseOrderProduct) CheckInvariant() error {
	if p.QuantityAvailable < 0 || p.QuantityAvailable > p.QuantityPurchased {
		return shared.ErrLedgerInconsistent
	}
	return nil
}
