// Package router assembles the versioned stock API.
package router

import (
	"net/http"

	"github.com/erp/warehouse/internal/interfaces/http/dto"
	"github.com/erp/warehouse/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// APIPrefix is where the resource routes are mounted
const APIPrefix = "/api/v1"

// Handlers bundles every API handler
type Handlers struct {
	System        *handler.SystemHandler
	Products      *handler.ProductHandler
	PurchaseOrder *handler.PurchaseOrderHandler
	Locations     *handler.LocationHandler
	Pallets       *handler.PalletHandler
	Shipments     *handler.ShipmentHandler
}

// Route is one method and path below a resource prefix
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Resource groups the routes sharing a prefix
type Resource struct {
	Prefix string
	Routes []Route
}

func get(path string, h gin.HandlerFunc) Route  { return Route{http.MethodGet, path, h} }
func post(path string, h gin.HandlerFunc) Route { return Route{http.MethodPost, path, h} }
func put(path string, h gin.HandlerFunc) Route  { return Route{http.MethodPut, path, h} }
func del(path string, h gin.HandlerFunc) Route  { return Route{http.MethodDelete, path, h} }

// Resources lists the stock API. Every route that mutates the ledger ends
// in a stock recalculation for the products it touched.
func Resources(h Handlers) []Resource {
	return []Resource{
		{"/system", []Route{
			get("/info", h.System.GetSystemInfo),
		}},
		{"/suppliers", []Route{
			post("", h.Products.CreateSupplier),
			get("/:id", h.Products.GetSupplier),
		}},
		{"/products", []Route{
			get("", h.Products.List),
			post("", h.Products.Create),
			get("/:id", h.Products.GetByID),
			post("/:id/recalculate-stock", h.Products.RecalculateStock),
		}},
		{"/purchase-orders", []Route{
			get("", h.PurchaseOrder.List),
			post("", h.PurchaseOrder.Create),
			get("/:id", h.PurchaseOrder.GetByID),
			put("/:id/status", h.PurchaseOrder.UpdateStatus),
			post("/:id/deactivate", h.PurchaseOrder.Deactivate),
		}},
		{"/purchase-order-products", []Route{
			put("/:id/received", h.PurchaseOrder.RecordReceived),
		}},
		{"/locations", []Route{
			get("", h.Locations.List),
			post("", h.Locations.Create),
			get("/:id", h.Locations.GetByID),
			get("/:id/availability", h.Locations.Availability),
			put("/:id/capacity", h.Locations.UpdateCapacity),
		}},
		{"/pallets", []Route{
			get("", h.Pallets.List),
			post("", h.Pallets.Create),
			get("/:id", h.Pallets.GetByID),
			put("/:id", h.Pallets.Update),
			put("/:id/location", h.Pallets.Move),
			del("/:id", h.Pallets.Delete),
		}},
		{"/shipments", []Route{
			get("", h.Shipments.List),
			post("", h.Shipments.Create),
			get("/:id", h.Shipments.GetByID),
			put("/:id", h.Shipments.Update),
			put("/:id/status", h.Shipments.UpdateStatus),
			put("/:id/products/:pallet_product_id/check", h.Shipments.SetLineChecked),
			del("/:id", h.Shipments.Delete),
		}},
	}
}

// Register mounts resources under group
func Register(group *gin.RouterGroup, resources []Resource) {
	for _, res := range resources {
		rg := group.Group(res.Prefix)
		for _, r := range res.Routes {
			rg.Handle(r.Method, r.Path, r.Handler)
		}
	}
}

// Mount registers the probes at the root, the API under APIPrefix and a
// JSON 404 for everything else
func Mount(engine *gin.Engine, h Handlers) {
	engine.GET("/health/live", h.System.Live)
	engine.GET("/health/ready", h.System.Ready)

	Register(engine.Group(APIPrefix), Resources(h))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeRouteNotFound, "Route not found"))
	})
}
