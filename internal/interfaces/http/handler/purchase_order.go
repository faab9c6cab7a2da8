package handler

import (
	"context"

	apppurchasing "github.com/erp/warehouse/internal/application/purchasing"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// PurchaseOrderService is the subset of the purchasing service the handler uses
type PurchaseOrderService interface {
	CreatePurchaseOrder(ctx context.Context, req apppurchasing.CreatePurchaseOrderRequest) (*apppurchasing.PurchaseOrderResponse, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*apppurchasing.PurchaseOrderResponse, error)
	RecordReceived(ctx context.Context, purchaseOrderProductID int64, received int) (*apppurchasing.OrderLineResponse, error)
	Deactivate(ctx context.Context, id int64) error
	GetPurchaseOrder(ctx context.Context, id int64) (*apppurchasing.PurchaseOrderResponse, error)
	ListPurchaseOrders(ctx context.Context, page, pageSize int, activeOnly bool) (shared.Paginated[apppurchasing.PurchaseOrderResponse], error)
}

// PurchaseOrderHandler handles purchase order endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	service PurchaseOrderService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(service PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{service: service}
}

// ReceivedRequest is the body of PUT /purchase-order-products/:id/received
type ReceivedRequest struct {
	QuantityReceived int `json:"quantity_received" binding:"gte=0"`
}

// PurchaseOrderListQuery is the query of GET /purchase-orders
type PurchaseOrderListQuery struct {
	Page       int  `form:"page" binding:"omitempty,min=1"`
	PageSize   int  `form:"page_size" binding:"omitempty,min=1,max=200"`
	ActiveOnly bool `form:"active_only"`
}

// Create places an order and books its lines as available stock
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req apppurchasing.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	po, err := h.service.CreatePurchaseOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, po)
}

// GetByID returns an order with its lines
func (h *PurchaseOrderHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	po, err := h.service.GetPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, po)
}

// List pages through orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var q PurchaseOrderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.service.ListPurchaseOrders(c.Request.Context(), q.Page, q.PageSize, q.ActiveOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// UpdateStatus moves an order to another workflow status
func (h *PurchaseOrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	po, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, po)
}

// RecordReceived stores the physically received count of an order line
func (h *PurchaseOrderHandler) RecordReceived(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ReceivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	line, err := h.service.RecordReceived(c.Request.Context(), id, req.QuantityReceived)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, line)
}

// Deactivate withdraws an order from stock
func (h *PurchaseOrderHandler) Deactivate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
