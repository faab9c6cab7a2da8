package handler

import (
	"context"

	appcatalog "github.com/erp/warehouse/internal/application/catalog"
	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// ProductService is the subset of the catalog service the handler uses
type ProductService interface {
	CreateProduct(ctx context.Context, req appcatalog.CreateProductRequest) (*appcatalog.ProductResponse, error)
	GetProduct(ctx context.Context, id int64) (*appcatalog.ProductResponse, error)
	ListProducts(ctx context.Context, filter appcatalog.ProductListFilter) (shared.Paginated[appcatalog.ProductResponse], error)
	RecalculateStock(ctx context.Context, id int64) (*stock.Level, error)
}

// SupplierService is the subset of the supplier service the handler uses
type SupplierService interface {
	CreateSupplier(ctx context.Context, req appcatalog.CreateSupplierRequest) (*appcatalog.SupplierResponse, error)
	GetSupplier(ctx context.Context, id int64) (*appcatalog.SupplierResponse, error)
}

// ProductHandler handles product and supplier endpoints
type ProductHandler struct {
	BaseHandler
	products  ProductService
	suppliers SupplierService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products ProductService, suppliers SupplierService) *ProductHandler {
	return &ProductHandler{products: products, suppliers: suppliers}
}

// Create registers a product
func (h *ProductHandler) Create(c *gin.Context) {
	var req appcatalog.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.products.CreateProduct(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// GetByID returns a product with its cached warehouse stock
func (h *ProductHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// List pages through products
func (h *ProductHandler) List(c *gin.Context) {
	var filter appcatalog.ProductListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.products.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// RecalculateStock rebuilds the product's warehouse stock from the ledger and
// returns the per-stage breakdown
func (h *ProductHandler) RecalculateStock(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	level, err := h.products.RecalculateStock(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, level)
}

// CreateSupplier registers a supplier
func (h *ProductHandler) CreateSupplier(c *gin.Context) {
	var req appcatalog.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	supplier, err := h.suppliers.CreateSupplier(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, supplier)
}

// GetSupplier returns a supplier
func (h *ProductHandler) GetSupplier(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	supplier, err := h.suppliers.GetSupplier(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, supplier)
}
