package catalog

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
)

// Product is a catalog entry for a resold item. WarehouseStock is a derived
// cache owned by the stock recalculator and is never authoritative.
type Product struct {
	shared.BaseEntity
	ASIN           string `gorm:"type:varchar(20);not null;uniqueIndex" json:"asin"`
	SellerSKU      string `gorm:"type:varchar(100);index" json:"seller_sku"`
	Title          string `gorm:"type:varchar(500);not null" json:"title"`
	SupplierID     *int64 `gorm:"index" json:"supplier_id,omitempty"`
	WarehouseStock int    `gorm:"not null;default:0" json:"warehouse_stock"`
	IsActive       bool   `gorm:"not null;default:true" json:"is_active"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new active product with an empty stock cache
func NewProduct(asin, sellerSKU, title string, supplierID *int64) (*Product, error) {
	asin = strings.ToUpper(strings.TrimSpace(asin))
	if asin == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ASIN cannot be empty")
	}
	if len(asin) > 20 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ASIN cannot exceed 20 characters")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product title cannot be empty")
	}
	return &Product{
		ASIN:       asin,
		SellerSKU:  strings.TrimSpace(sellerSKU),
		Title:      title,
		SupplierID: supplierID,
		IsActive:   true,
	}, nil
}

// Deactivate hides the product from active listings
func (p *Product) Deactivate() {
	p.IsActive = false
}
