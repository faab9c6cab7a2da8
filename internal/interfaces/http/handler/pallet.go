package handler

import (
	"context"

	appwarehouse "github.com/erp/warehouse/internal/application/warehouse"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// PalletService is the subset of the pallet allocator the handler uses
type PalletService interface {
	CreatePallet(ctx context.Context, req appwarehouse.CreatePalletRequest) (*appwarehouse.PalletResponse, error)
	UpdatePallet(ctx context.Context, id int64, req appwarehouse.UpdatePalletRequest) (*appwarehouse.PalletResponse, error)
	MovePallet(ctx context.Context, id int64, locationID *int64) (*appwarehouse.PalletResponse, error)
	DeletePallet(ctx context.Context, id int64) error
	GetPallet(ctx context.Context, id int64) (*appwarehouse.PalletResponse, error)
	ListPallets(ctx context.Context, filter appwarehouse.PalletListFilter) (shared.Paginated[appwarehouse.PalletResponse], error)
}

// PalletHandler handles pallet endpoints
type PalletHandler struct {
	BaseHandler
	service PalletService
}

// NewPalletHandler creates a new PalletHandler
func NewPalletHandler(service PalletService) *PalletHandler {
	return &PalletHandler{service: service}
}

// Create builds a pallet and allocates its lines from the order
func (h *PalletHandler) Create(c *gin.Context) {
	var req appwarehouse.CreatePalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	pallet, err := h.service.CreatePallet(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, pallet)
}

// GetByID returns a pallet with its lines
func (h *PalletHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	pallet, err := h.service.GetPallet(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pallet)
}

// List pages through pallets
func (h *PalletHandler) List(c *gin.Context) {
	var filter appwarehouse.PalletListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.service.ListPallets(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Update changes the header, location or lines of a pallet
func (h *PalletHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appwarehouse.UpdatePalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	pallet, err := h.service.UpdatePallet(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pallet)
}

// Move places the pallet in another location or, with a null location,
// takes it off the floor
func (h *PalletHandler) Move(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appwarehouse.MovePalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	pallet, err := h.service.MovePallet(c.Request.Context(), id, req.WarehouseLocationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pallet)
}

// Delete removes a pallet and returns its quantities to the order
func (h *PalletHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePallet(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
