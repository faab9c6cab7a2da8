package catalog

import (
	"time"

	"github.com/erp/warehouse/internal/domain/catalog"
)

// CreateProductRequest is the input of ProductService.CreateProduct
type CreateProductRequest struct {
	ASIN       string `json:"asin" binding:"required,notblank,max=20"`
	SellerSKU  string `json:"seller_sku" binding:"max=100"`
	Title      string `json:"title" binding:"required,notblank,max=500"`
	SupplierID *int64 `json:"supplier_id" binding:"omitempty,gt=0"`
}

// ProductListFilter is the input of ProductService.ListProducts
type ProductListFilter struct {
	SupplierID *int64 `form:"supplier_id"`
	ActiveOnly bool   `form:"active_only"`
	InStock    bool   `form:"in_stock"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// ProductResponse is the read projection of a product
type ProductResponse struct {
	ID             int64     `json:"id"`
	ASIN           string    `json:"asin"`
	SellerSKU      string    `json:"seller_sku"`
	Title          string    `json:"title"`
	SupplierID     *int64    `json:"supplier_id,omitempty"`
	WarehouseStock int       `json:"warehouse_stock"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToProductResponse converts a product
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		ASIN:           p.ASIN,
		SellerSKU:      p.SellerSKU,
		Title:          p.Title,
		SupplierID:     p.SupplierID,
		WarehouseStock: p.WarehouseStock,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// CreateSupplierRequest is the input of SupplierService.CreateSupplier
type CreateSupplierRequest struct {
	Name    string `json:"name" binding:"required,notblank,max=200"`
	Contact string `json:"contact" binding:"max=200"`
	Email   string `json:"email" binding:"omitempty,email,max=200"`
}

// SupplierResponse is the read projection of a supplier
type SupplierResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToSupplierResponse converts a supplier
func ToSupplierResponse(s *catalog.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:        s.ID,
		Name:      s.Name,
		Contact:   s.Contact,
		Email:     s.Email,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
}
