package purchasing_test

import "github.com/erp/warehouse/internal/domain/catalog"

func testProducts(p ...*catalog.Product) []*catalog.Product {
	return p
}
