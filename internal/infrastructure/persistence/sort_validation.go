package persistence

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "ASC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "DESC" {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to every ledger table
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// PalletSortFields contains allowed sort fields for pallets
var PalletSortFields = withCommon("pallet_number", "warehouse_location_id", "purchase_order_id")

// LocationSortFields contains allowed sort fields for warehouse locations
var LocationSortFields = withCommon("location", "capacity", "current_capacity")

// ShipmentSortFields contains allowed sort fields for outgoing shipments
var ShipmentSortFields = withCommon("shipment_number", "status")

// PurchaseOrderSortFields contains allowed sort fields for purchase orders
var PurchaseOrderSortFields = withCommon("order_number", "status", "total_price")

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = withCommon("asin", "seller_sku", "title", "warehouse_stock")

func withCommon(fields ...string) map[string]bool {
	m := make(map[string]bool, len(CommonSortFields)+len(fields))
	for f := range CommonSortFields {
		m[f] = true
	}
	for _, f := range fields {
		m[f] = true
	}
	return m
}

// paginate applies whitelisted ordering and paging to query
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool) *gorm.DB {
	filter = filter.Normalize()
	field := ValidateSortField(filter.OrderBy, allowed, "id")
	return query.
		Order(field + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
}
