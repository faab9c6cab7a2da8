package persistence

import (
	"context"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/domain/shipment"
	"gorm.io/gorm"
)

// GormStockQueryRepository holds the one warehouse stock aggregate query
type GormStockQueryRepository struct {
	db *gorm.DB
}

// NewGormStockQueryRepository creates a new GormStockQueryRepository
func NewGormStockQueryRepository(db *gorm.DB) *GormStockQueryRepository {
	return &GormStockQueryRepository{db: db}
}

// warehouseStockSQL sums the three ledger stages of one product, restricted
// to active purchase orders and active lines. Shipment quantities count only
// while the shipment is still being built.
const warehouseStockSQL = `
SELECT
  (SELECT COALESCE(SUM(pop.quantity_available), 0)
     FROM purchase_order_products pop
     JOIN purchase_orders po ON po.id = pop.purchase_order_id
    WHERE pop.product_id = @product AND pop.is_active = @active AND po.is_active = @active
  ) AS purchase_order_stage,
  (SELECT COALESCE(SUM(pp.available_quantity), 0)
     FROM pallet_products pp
     JOIN purchase_order_products pop ON pop.id = pp.purchase_order_product_id
     JOIN purchase_orders po ON po.id = pop.purchase_order_id
    WHERE pop.product_id = @product AND pp.is_active = @active
      AND pop.is_active = @active AND po.is_active = @active
  ) AS pallet_stage,
  (SELECT COALESCE(SUM(osp.quantity), 0)
     FROM outgoing_shipment_products osp
     JOIN outgoing_shipments os ON os.id = osp.outgoing_shipment_id
     JOIN pallet_products pp ON pp.id = osp.pallet_product_id
     JOIN purchase_order_products pop ON pop.id = pp.purchase_order_product_id
     JOIN purchase_orders po ON po.id = pop.purchase_order_id
    WHERE pop.product_id = @product AND os.status = @status
      AND pop.is_active = @active AND po.is_active = @active
  ) AS working_shipments`

type stageSums struct {
	PurchaseOrderStage int64
	PalletStage        int64
	WorkingShipments   int64
}

// ComputeWarehouseStock aggregates the ledger stages of productID
func (r *GormStockQueryRepository) ComputeWarehouseStock(ctx context.Context, productID int64) (stock.Breakdown, error) {
	var sums stageSums
	err := r.db.WithContext(ctx).Raw(warehouseStockSQL, map[string]any{
		"product": productID,
		"active":  true,
		"status":  shipment.StatusWorking,
	}).Scan(&sums).Error
	if err != nil {
		return stock.Breakdown{}, err
	}
	return stock.Breakdown{
		ProductID:          productID,
		PurchaseOrderStage: int(sums.PurchaseOrderStage),
		PalletStage:        int(sums.PalletStage),
		WorkingShipments:   int(sums.WorkingShipments),
	}, nil
}

// ProductIDsForPurchaseOrderProducts maps line items to distinct products
func (r *GormStockQueryRepository) ProductIDsForPurchaseOrderProducts(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var productIDs []int64
	err := r.db.WithContext(ctx).
		Table("purchase_order_products").
		Where("id IN ?", ids).
		Distinct().
		Order("product_id").
		Pluck("product_id", &productIDs).Error
	return productIDs, err
}

// ProductIDsForPalletProducts maps pallet products to distinct products
func (r *GormStockQueryRepository) ProductIDsForPalletProducts(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var productIDs []int64
	err := r.db.WithContext(ctx).
		Table("pallet_products pp").
		Joins("JOIN purchase_order_products pop ON pop.id = pp.purchase_order_product_id").
		Where("pp.id IN ?", ids).
		Distinct().
		Order("pop.product_id").
		Pluck("pop.product_id", &productIDs).Error
	return productIDs, err
}

var _ stock.QueryRepository = (*GormStockQueryRepository)(nil)
