package warehouse

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
)

// Pallet is a physical container placed (or not yet placed) in a location.
// A placed pallet holds exactly one slot of its location.
type Pallet struct {
	shared.BaseEntity
	PalletNumber        string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"pallet_number"`
	WarehouseLocationID *int64          `gorm:"index" json:"warehouse_location_id"`
	PurchaseOrderID     int64           `gorm:"not null;index" json:"purchase_order_id"`
	IsActive            bool            `gorm:"not null;default:true" json:"is_active"`
	Products            []PalletProduct `gorm:"foreignKey:PalletID" json:"products,omitempty"`
}

// TableName returns the table name for GORM
func (Pallet) TableName() string {
	return "pallets"
}

// NewPallet validates the header fields of a new pallet
func NewPallet(palletNumber string, locationID *int64, purchaseOrderID int64) (*Pallet, error) {
	palletNumber = strings.TrimSpace(palletNumber)
	if palletNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Pallet number cannot be empty")
	}
	if purchaseOrderID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Purchase order is required")
	}
	if locationID != nil && *locationID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid warehouse location")
	}
	return &Pallet{
		PalletNumber:        palletNumber,
		WarehouseLocationID: locationID,
		PurchaseOrderID:     purchaseOrderID,
		IsActive:            true,
	}, nil
}

// IsPlaced reports whether the pallet occupies a location slot
func (p *Pallet) IsPlaced() bool {
	return p.WarehouseLocationID != nil
}

// PalletProduct allocates part of a purchase order line onto a pallet and is
// the second ledger stage: AvailableQuantity is what shipments may still take.
type PalletProduct struct {
	shared.BaseEntity
	PalletID               int64 `gorm:"not null;index;uniqueIndex:idx_pallet_product_line,priority:1" json:"pallet_id"`
	PurchaseOrderProductID int64 `gorm:"not null;index;uniqueIndex:idx_pallet_product_line,priority:2" json:"purchase_order_product_id"`
	Quantity               int   `gorm:"not null" json:"quantity"`
	AvailableQuantity      int   `gorm:"not null" json:"available_quantity"`
	IsActive               bool  `gorm:"not null;default:true" json:"is_active"`
}

// TableName returns the table name for GORM
func (PalletProduct) TableName() string {
	return "pallet_products"
}

// NewPalletProduct creates an allocation whose whole quantity is available
func NewPalletProduct(palletID, purchaseOrderProductID int64, quantity int) (*PalletProduct, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Pallet quantity must be positive")
	}
	return &PalletProduct{
		PalletID:               palletID,
		PurchaseOrderProductID: purchaseOrderProductID,
		Quantity:               quantity,
		AvailableQuantity:      quantity,
		IsActive:               true,
	}, nil
}

// Shipped returns the quantity already consumed by outgoing shipments
func (pp *PalletProduct) Shipped() int {
	return pp.Quantity - pp.AvailableQuantity
}

// Resize changes the allocated quantity while keeping the shipped part
// intact. Shrinking below what has already shipped is rejected.
func (pp *PalletProduct) Resize(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Pallet quantity must be positive")
	}
	shipped := pp.Shipped()
	if quantity < shipped {
		return shared.NewDomainError(shared.CodeQuantityExceeded, "Pallet quantity cannot drop below the quantity already shipped")
	}
	pp.Quantity = quantity
	pp.AvailableQuantity = quantity - shipped
	return nil
}

// CheckInvariant verifies 0 <= available_quantity <= quantity
func (pp *PalletProduct) CheckInvariant() error {
	if pp.AvailableQuantity < 0 || pp.AvailableQuantity > pp.Quantity {
		return shared.ErrLedgerInconsistent
	}
	return nil
}
