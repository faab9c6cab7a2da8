package handler

import (
	"context"

	appshipment "github.com/erp/warehouse/internal/application/shipment"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// ShipmentService is the subset of the outgoing shipment service the handler uses
type ShipmentService interface {
	CreateShipment(ctx context.Context, req appshipment.CreateShipmentRequest) (*appshipment.ShipmentResponse, error)
	UpdateShipment(ctx context.Context, id int64, req appshipment.UpdateShipmentRequest) (*appshipment.ShipmentResponse, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*appshipment.ShipmentResponse, error)
	DeleteShipment(ctx context.Context, id int64) error
	SetLineChecked(ctx context.Context, shipmentID, palletProductID int64, checked bool) error
	GetShipment(ctx context.Context, id int64) (*appshipment.ShipmentResponse, error)
	ListShipments(ctx context.Context, filter appshipment.ShipmentListFilter) (shared.Paginated[appshipment.ShipmentResponse], error)
}

// ShipmentHandler handles outgoing shipment endpoints
type ShipmentHandler struct {
	BaseHandler
	service ShipmentService
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(service ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{service: service}
}

// StatusRequest is the body of the status transition endpoints
type StatusRequest struct {
	Status string `json:"status" binding:"required,max=40"`
}

// CheckRequest is the body of PUT /shipments/:id/products/:pallet_product_id/check
type CheckRequest struct {
	Checked bool `json:"checked"`
}

// Create opens a shipment and draws its lines from pallets
func (h *ShipmentHandler) Create(c *gin.Context) {
	var req appshipment.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	out, err := h.service.CreateShipment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, out)
}

// GetByID returns a shipment with its lines
func (h *ShipmentHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	out, err := h.service.GetShipment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// List pages through shipments
func (h *ShipmentHandler) List(c *gin.Context) {
	var filter appshipment.ShipmentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.service.ListShipments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Update changes the header or lines of a shipment
func (h *ShipmentHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appshipment.UpdateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	out, err := h.service.UpdateShipment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// UpdateStatus moves a shipment to another workflow status
func (h *ShipmentHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	out, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// SetLineChecked flags a shipment line as physically verified
func (h *ShipmentHandler) SetLineChecked(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	palletProductID, ok := h.pathID(c, "pallet_product_id")
	if !ok {
		return
	}
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if err := h.service.SetLineChecked(c.Request.Context(), id, palletProductID, req.Checked); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Delete removes a shipment and returns its quantities to the pallets
func (h *ShipmentHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteShipment(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
