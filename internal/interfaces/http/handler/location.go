package handler

import (
	"context"

	appwarehouse "github.com/erp/warehouse/internal/application/warehouse"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// LocationService is the subset of the location allocator the handler uses
type LocationService interface {
	CreateLocation(ctx context.Context, req appwarehouse.CreateLocationRequest) (*appwarehouse.LocationResponse, error)
	UpdateCapacity(ctx context.Context, id int64, capacity int) (*appwarehouse.LocationResponse, error)
	FindByID(ctx context.Context, id int64) (*appwarehouse.LocationResponse, error)
	IsAvailable(ctx context.Context, id int64) (bool, error)
	ListLocations(ctx context.Context, page, pageSize int, availableOnly bool) (shared.Paginated[appwarehouse.LocationResponse], error)
}

// LocationHandler handles warehouse location endpoints
type LocationHandler struct {
	BaseHandler
	service LocationService
}

// NewLocationHandler creates a new LocationHandler
func NewLocationHandler(service LocationService) *LocationHandler {
	return &LocationHandler{service: service}
}

// UpdateCapacityRequest is the body of PUT /locations/:id/capacity
type UpdateCapacityRequest struct {
	Capacity int `json:"capacity" binding:"required,gt=0"`
}

// LocationListQuery is the query of GET /locations
type LocationListQuery struct {
	Page          int  `form:"page" binding:"omitempty,min=1"`
	PageSize      int  `form:"page_size" binding:"omitempty,min=1,max=200"`
	AvailableOnly bool `form:"available_only"`
}

// Create registers a new location
func (h *LocationHandler) Create(c *gin.Context) {
	var req appwarehouse.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	loc, err := h.service.CreateLocation(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, loc)
}

// GetByID returns a location
func (h *LocationHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	loc, err := h.service.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, loc)
}

// Availability reports whether the location has a free slot
func (h *LocationHandler) Availability(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	available, err := h.service.IsAvailable(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"id": id, "is_available": available})
}

// List pages through locations
func (h *LocationHandler) List(c *gin.Context) {
	var q LocationListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.service.ListLocations(c.Request.Context(), q.Page, q.PageSize, q.AvailableOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// UpdateCapacity changes the slot count of a location
func (h *LocationHandler) UpdateCapacity(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	loc, err := h.service.UpdateCapacity(c.Request.Context(), id, req.Capacity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, loc)
}
