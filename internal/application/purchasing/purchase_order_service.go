package purchasing

import (
	"context"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/domain/purchasing"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PurchaseOrderService maintains purchase orders, the first stage of the
// quantity ledger.
type PurchaseOrderService struct {
	scope        stock.TransactionScope
	recalculator *stock.Recalculator
	metrics      stock.LedgerMetrics
	logger       *zap.Logger
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(scope stock.TransactionScope, recalculator *stock.Recalculator, metrics stock.LedgerMetrics, logger *zap.Logger) *PurchaseOrderService {
	if metrics == nil {
		metrics = stock.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderService{
		scope:        scope,
		recalculator: recalculator,
		metrics:      metrics,
		logger:       logger,
	}
}

// CreatePurchaseOrder creates an order whose lines are fully available for
// allocation and recalculates the stock of the ordered products.
func (s *PurchaseOrderService) CreatePurchaseOrder(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "create",
		telemetry.WithAttribute("order_number", req.OrderNumber))
	defer span.End()

	order, err := purchasing.NewPurchaseOrder(req.OrderNumber, req.SupplierID, req.Notes)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	touched := stock.ProductSet{}
	for _, line := range req.Products {
		if err := order.AddProduct(line.ProductID, line.Quantity, line.UnitPrice, line.ProductCost); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		touched.Add(line.ProductID)
	}

	var levels []stock.Level
	err = s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		exists, err := repos.PurchaseOrders().ExistsByOrderNumber(ctx, order.OrderNumber)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeDuplicateKey, "Purchase order "+order.OrderNumber+" already exists")
		}
		if _, err := repos.Suppliers().FindByID(ctx, order.SupplierID); err != nil {
			return err
		}
		for _, productID := range touched.IDs() {
			if _, err := repos.Products().FindByID(ctx, productID); err != nil {
				return err
			}
		}
		if err := repos.PurchaseOrders().Create(ctx, order); err != nil {
			return err
		}
		levels, err = s.recalculator.RecalculateInTx(ctx, repos, touched.IDs()...)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordMutation(ctx, "create_purchase_order")
	s.recalculator.Publish(ctx, levels)
	s.logger.Info("Purchase order created",
		zap.Int64("purchase_order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int("lines", len(order.Products)),
		zap.String("total_price", order.TotalPrice.String()),
	)
	telemetry.SetOK(span)
	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// UpdateStatus moves an order through its lifecycle. Status does not take
// part in the stock calculation.
func (s *PurchaseOrderService) UpdateStatus(ctx context.Context, id int64, status string) (*PurchaseOrderResponse, error) {
	next, err := purchasing.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	var order *purchasing.PurchaseOrder
	err = s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		order, err = repos.PurchaseOrders().FindByIDWithProducts(ctx, id)
		if err != nil {
			return err
		}
		if err := order.ChangeStatus(next); err != nil {
			return err
		}
		return repos.PurchaseOrders().UpdateStatus(ctx, id, next)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Purchase order status changed",
		zap.Int64("purchase_order_id", id),
		zap.String("status", string(next)),
	)
	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// RecordReceived stores the received quantity of one line. The ledger's
// available counter is not affected.
func (s *PurchaseOrderService) RecordReceived(ctx context.Context, purchaseOrderProductID int64, received int) (*OrderLineResponse, error) {
	var line *purchasing.PurchaseOrderProduct
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		line, err = repos.PurchaseOrderProducts().FindByIDForUpdate(ctx, purchaseOrderProductID)
		if err != nil {
			return err
		}
		if err := line.RecordReceived(received); err != nil {
			return err
		}
		return repos.PurchaseOrderProducts().UpdateReceived(ctx, line.ID, line.QuantityReceived, line.QuantityMissing)
	})
	if err != nil {
		return nil, err
	}
	resp := ToOrderLineResponse(line)
	return &resp, nil
}

// Deactivate soft-deletes an order and its lines, removing them from the
// stock of every product they carry.
func (s *PurchaseOrderService) Deactivate(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "deactivate",
		telemetry.WithAttribute("purchase_order_id", id))
	defer span.End()

	var levels []stock.Level
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		order, err := repos.PurchaseOrders().FindByIDWithProducts(ctx, id)
		if err != nil {
			return err
		}
		if !order.IsActive {
			return nil
		}
		if err := repos.PurchaseOrders().Deactivate(ctx, id); err != nil {
			return err
		}
		touched := stock.ProductSet{}
		for _, line := range order.Products {
			touched.Add(line.ProductID)
		}
		levels, err = s.recalculator.RecalculateInTx(ctx, repos, touched.IDs()...)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.metrics.RecordMutation(ctx, "deactivate_purchase_order")
	s.recalculator.Publish(ctx, levels)
	s.logger.Info("Purchase order deactivated", zap.Int64("purchase_order_id", id))
	telemetry.SetOK(span)
	return nil
}

// GetPurchaseOrder returns an order with its lines
func (s *PurchaseOrderService) GetPurchaseOrder(ctx context.Context, id int64) (*PurchaseOrderResponse, error) {
	var order *purchasing.PurchaseOrder
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		order, err = repos.PurchaseOrders().FindByIDWithProducts(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseOrderResponse(order)
	return &resp, nil
}

// ListPurchaseOrders lists order headers
func (s *PurchaseOrderService) ListPurchaseOrders(ctx context.Context, page, pageSize int, activeOnly bool) (shared.Paginated[PurchaseOrderResponse], error) {
	filter := shared.Filter{Page: page, PageSize: pageSize}.Normalize()
	var (
		orders []purchasing.PurchaseOrder
		total  int64
	)
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		orders, total, err = repos.PurchaseOrders().FindAll(ctx, filter, activeOnly)
		return err
	})
	if err != nil {
		return shared.Paginated[PurchaseOrderResponse]{}, err
	}
	items := make([]PurchaseOrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, ToPurchaseOrderResponse(&orders[i]))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
