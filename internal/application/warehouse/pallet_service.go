package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/domain/purchasing"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/warehouse"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PalletService moves purchase order units onto pallets. Every mutation runs
// in one transaction together with the stock recalculation of the products it
// touched; stock events are published after commit.
type PalletService struct {
	scope        stock.TransactionScope
	recalculator *stock.Recalculator
	metrics      stock.LedgerMetrics
	logger       *zap.Logger
}

// NewPalletService creates a new PalletService
func NewPalletService(scope stock.TransactionScope, recalculator *stock.Recalculator, metrics stock.LedgerMetrics, logger *zap.Logger) *PalletService {
	if metrics == nil {
		metrics = stock.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PalletService{
		scope:        scope,
		recalculator: recalculator,
		metrics:      metrics,
		logger:       logger,
	}
}

// CreatePallet creates a pallet, takes a slot of its location and allocates
// the requested purchase order units onto it.
func (s *PalletService) CreatePallet(ctx context.Context, req CreatePalletRequest) (*PalletResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pallet", "create",
		telemetry.WithAttribute("pallet_number", req.PalletNumber))
	defer span.End()

	pallet, err := warehouse.NewPallet(req.PalletNumber, req.WarehouseLocationID, req.PurchaseOrderID)
	if err != nil {
		return nil, s.reject(ctx, span, "create_pallet", err)
	}
	lines, err := warehouse.MergeLines(toLines(req.Products))
	if err != nil {
		return nil, s.reject(ctx, span, "create_pallet", err)
	}

	var levels []stock.Level
	err = s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		if pallet.WarehouseLocationID != nil {
			if err := reserveSlot(ctx, repos, *pallet.WarehouseLocationID); err != nil {
				return err
			}
		}
		if err := s.requireOrder(ctx, repos, pallet.PurchaseOrderID); err != nil {
			return err
		}
		exists, err := repos.Pallets().ExistsByNumber(ctx, pallet.PalletNumber)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeDuplicateKey, "Pallet "+pallet.PalletNumber+" already exists")
		}
		if err := repos.Pallets().Create(ctx, pallet); err != nil {
			return err
		}

		orderLines := make([]int64, 0, len(lines))
		for _, line := range lines {
			pp, err := s.allocate(ctx, repos, pallet, line)
			if err != nil {
				return err
			}
			pallet.Products = append(pallet.Products, *pp)
			orderLines = append(orderLines, line.RefID)
		}

		levels, err = s.recalculate(ctx, repos, orderLines)
		return err
	})
	if err != nil {
		return nil, s.reject(ctx, span, "create_pallet", err)
	}

	s.committed(ctx, "create_pallet", levels)
	s.logger.Info("Pallet created",
		zap.Int64("pallet_id", pallet.ID),
		zap.String("pallet_number", pallet.PalletNumber),
		zap.Int("lines", len(pallet.Products)),
	)
	telemetry.SetAttributes(span, telemetry.SpanAttrPalletID, pallet.ID, "lines", len(pallet.Products))
	telemetry.SetOK(span)
	resp := ToPalletResponse(pallet)
	return &resp, nil
}

// UpdatePallet changes the header of a pallet and, when req.Products is set,
// reconciles its lines against the desired set: changed quantities move only
// their delta, new lines are allocated and missing lines are released.
func (s *PalletService) UpdatePallet(ctx context.Context, id int64, req UpdatePalletRequest) (*PalletResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pallet", "update",
		telemetry.WithAttribute(telemetry.SpanAttrPalletID, id))
	defer span.End()

	var desired []warehouse.Line
	if req.Products != nil {
		var err error
		desired, err = warehouse.MergeLines(toLines(*req.Products))
		if err != nil {
			return nil, s.reject(ctx, span, "update_pallet", err)
		}
	}

	var (
		pallet *warehouse.Pallet
		levels []stock.Level
	)
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		pallet, err = repos.Pallets().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.updateHeader(ctx, repos, pallet, req); err != nil {
			return err
		}
		if req.Products == nil {
			return nil
		}

		orderLines, err := s.reconcileLines(ctx, repos, pallet, desired)
		if err != nil {
			return err
		}
		pallet.Products, err = repos.PalletProducts().FindByPallet(ctx, pallet.ID)
		if err != nil {
			return err
		}
		levels, err = s.recalculate(ctx, repos, orderLines)
		return err
	})
	if err != nil {
		return nil, s.reject(ctx, span, "update_pallet", err)
	}

	s.committed(ctx, "update_pallet", levels)
	s.logger.Info("Pallet updated",
		zap.Int64("pallet_id", pallet.ID),
		zap.Int("products_recalculated", len(levels)),
	)
	telemetry.SetOK(span)
	resp := ToPalletResponse(pallet)
	return &resp, nil
}

// MovePallet relocates a pallet without touching its lines. A nil location
// frees the current slot.
func (s *PalletService) MovePallet(ctx context.Context, id int64, locationID *int64) (*PalletResponse, error) {
	if locationID == nil {
		return s.UpdatePallet(ctx, id, UpdatePalletRequest{ClearLocation: true})
	}
	return s.UpdatePallet(ctx, id, UpdatePalletRequest{WarehouseLocationID: locationID})
}

// DeletePallet returns every allocated unit to its purchase order line,
// frees the location slot and removes the pallet. Pallets whose products are
// referenced by shipments are rejected with PALLET_IN_USE.
func (s *PalletService) DeletePallet(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "pallet", "delete",
		telemetry.WithAttribute(telemetry.SpanAttrPalletID, id))
	defer span.End()

	var levels []stock.Level
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		pallet, err := repos.Pallets().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		ppIDs := make([]int64, 0, len(pallet.Products))
		for _, pp := range pallet.Products {
			ppIDs = append(ppIDs, pp.ID)
		}
		if err := s.ensureNotShipped(ctx, repos, ppIDs...); err != nil {
			return err
		}

		orderLines := make([]int64, 0, len(pallet.Products))
		for _, pp := range pallet.Products {
			if err := s.release(ctx, repos, pp.PurchaseOrderProductID, pp.Quantity); err != nil {
				return err
			}
			orderLines = append(orderLines, pp.PurchaseOrderProductID)
		}
		if err := repos.PalletProducts().DeleteByPallet(ctx, pallet.ID); err != nil {
			return err
		}
		if pallet.IsPlaced() {
			if err := releaseSlot(ctx, repos, *pallet.WarehouseLocationID); err != nil {
				return err
			}
		}
		if err := repos.Pallets().Delete(ctx, pallet.ID); err != nil {
			return err
		}

		levels, err = s.recalculate(ctx, repos, orderLines)
		return err
	})
	if err != nil {
		return s.reject(ctx, span, "delete_pallet", err)
	}

	s.committed(ctx, "delete_pallet", levels)
	s.logger.Info("Pallet deleted", zap.Int64("pallet_id", id))
	telemetry.SetOK(span)
	return nil
}

// GetPallet returns a pallet with its products
func (s *PalletService) GetPallet(ctx context.Context, id int64) (*PalletResponse, error) {
	var pallet *warehouse.Pallet
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		pallet, err = repos.Pallets().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToPalletResponse(pallet)
	return &resp, nil
}

// ListPallets lists pallets matching filter
func (s *PalletService) ListPallets(ctx context.Context, filter PalletListFilter) (shared.Paginated[PalletResponse], error) {
	f := warehouse.PalletFilter{
		Filter:              pageFilter(filter.Page, filter.PageSize),
		PurchaseOrderID:     filter.PurchaseOrderID,
		WarehouseLocationID: filter.WarehouseLocationID,
		Unplaced:            filter.Unplaced,
		ActiveOnly:          filter.ActiveOnly,
	}
	var (
		pallets []warehouse.Pallet
		total   int64
	)
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		pallets, total, err = repos.Pallets().FindAll(ctx, f)
		return err
	})
	if err != nil {
		return shared.Paginated[PalletResponse]{}, err
	}
	items := make([]PalletResponse, 0, len(pallets))
	for i := range pallets {
		items = append(items, ToPalletResponse(&pallets[i]))
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

func (s *PalletService) requireOrder(ctx context.Context, repos stock.TransactionalRepositories, purchaseOrderID int64) error {
	order, err := repos.PurchaseOrders().FindByID(ctx, purchaseOrderID)
	if err != nil {
		return err
	}
	if !order.IsActive {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Purchase order %d is inactive", purchaseOrderID))
	}
	return nil
}

// updateHeader applies number and location changes. A move reserves the new
// slot before freeing the old one.
func (s *PalletService) updateHeader(ctx context.Context, repos stock.TransactionalRepositories, pallet *warehouse.Pallet, req UpdatePalletRequest) error {
	changed := false
	if req.PalletNumber != nil && *req.PalletNumber != pallet.PalletNumber {
		if _, err := warehouse.NewPallet(*req.PalletNumber, nil, pallet.PurchaseOrderID); err != nil {
			return err
		}
		exists, err := repos.Pallets().ExistsByNumber(ctx, *req.PalletNumber)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeDuplicateKey, "Pallet "+*req.PalletNumber+" already exists")
		}
		pallet.PalletNumber = *req.PalletNumber
		changed = true
	}

	switch {
	case req.ClearLocation:
		if pallet.IsPlaced() {
			if err := releaseSlot(ctx, repos, *pallet.WarehouseLocationID); err != nil {
				return err
			}
			pallet.WarehouseLocationID = nil
			changed = true
		}
	case req.WarehouseLocationID != nil:
		target := *req.WarehouseLocationID
		if pallet.IsPlaced() && *pallet.WarehouseLocationID == target {
			break
		}
		if err := reserveSlot(ctx, repos, target); err != nil {
			return err
		}
		if pallet.IsPlaced() {
			if err := releaseSlot(ctx, repos, *pallet.WarehouseLocationID); err != nil {
				return err
			}
		}
		pallet.WarehouseLocationID = &target
		changed = true
	}

	if !changed {
		return nil
	}
	return repos.Pallets().UpdateHeader(ctx, pallet)
}

// reconcileLines applies the line plan in purchase order line order and
// returns the order lines whose availability moved.
func (s *PalletService) reconcileLines(ctx context.Context, repos stock.TransactionalRepositories, pallet *warehouse.Pallet, desired []warehouse.Line) ([]int64, error) {
	current := make([]warehouse.Line, 0, len(pallet.Products))
	byLine := make(map[int64]warehouse.PalletProduct, len(pallet.Products))
	for _, pp := range pallet.Products {
		current = append(current, warehouse.Line{RefID: pp.PurchaseOrderProductID, Quantity: pp.Quantity})
		byLine[pp.PurchaseOrderProductID] = pp
	}

	plan := warehouse.PlanLines(current, desired)
	moved := make([]int64, 0, len(plan))
	for _, change := range plan {
		var err error
		switch {
		case change.IsAdded():
			_, err = s.allocate(ctx, repos, pallet, warehouse.Line{RefID: change.RefID, Quantity: change.New})
		case change.IsRemoved():
			err = s.unallocate(ctx, repos, byLine[change.RefID])
		default:
			err = s.reallocate(ctx, repos, pallet, byLine[change.RefID].ID, change)
		}
		if err != nil {
			return nil, err
		}
		moved = append(moved, change.RefID)
	}
	return moved, nil
}

// allocate moves line.Quantity units of a purchase order line onto pallet
func (s *PalletService) allocate(ctx context.Context, repos stock.TransactionalRepositories, pallet *warehouse.Pallet, line warehouse.Line) (*warehouse.PalletProduct, error) {
	pop, err := s.lockOrderLine(ctx, repos, pallet.PurchaseOrderID, line.RefID)
	if err != nil {
		return nil, err
	}
	if err := warehouse.CheckAllocation(line.Quantity, pop.QuantityAvailable); err != nil {
		return nil, err
	}
	if err := repos.PurchaseOrderProducts().ConsumeAvailable(ctx, pop.ID, line.Quantity); err != nil {
		return nil, err
	}
	pp, err := warehouse.NewPalletProduct(pallet.ID, pop.ID, line.Quantity)
	if err != nil {
		return nil, err
	}
	if err := repos.PalletProducts().Create(ctx, pp); err != nil {
		return nil, err
	}
	return pp, nil
}

// reallocate moves only the delta of a changed line
func (s *PalletService) reallocate(ctx context.Context, repos stock.TransactionalRepositories, pallet *warehouse.Pallet, palletProductID int64, change warehouse.LineChange) error {
	pop, err := s.lockOrderLine(ctx, repos, pallet.PurchaseOrderID, change.RefID)
	if err != nil {
		return err
	}
	pp, err := repos.PalletProducts().FindByIDForUpdate(ctx, palletProductID)
	if err != nil {
		return err
	}
	if err := warehouse.CheckReallocation(change.Old, change.New, pop.QuantityAvailable); err != nil {
		return err
	}
	if err := pp.Resize(change.New); err != nil {
		return err
	}
	if err := pp.CheckInvariant(); err != nil {
		return err
	}

	delta := change.Delta()
	if delta > 0 {
		err = repos.PurchaseOrderProducts().ConsumeAvailable(ctx, pop.ID, delta)
	} else {
		err = repos.PurchaseOrderProducts().RestoreAvailable(ctx, pop.ID, -delta)
	}
	if err != nil {
		return err
	}
	return repos.PalletProducts().Resize(ctx, pp)
}

// unallocate drops a pallet line that no shipment references and returns
// its units to the order line
func (s *PalletService) unallocate(ctx context.Context, repos stock.TransactionalRepositories, pp warehouse.PalletProduct) error {
	if err := s.ensureNotShipped(ctx, repos, pp.ID); err != nil {
		return err
	}
	if err := s.release(ctx, repos, pp.PurchaseOrderProductID, pp.Quantity); err != nil {
		return err
	}
	return repos.PalletProducts().Delete(ctx, pp.ID)
}

// release returns quantity units to a purchase order line
func (s *PalletService) release(ctx context.Context, repos stock.TransactionalRepositories, purchaseOrderProductID int64, quantity int) error {
	pop, err := repos.PurchaseOrderProducts().FindByIDForUpdate(ctx, purchaseOrderProductID)
	if err != nil {
		return err
	}
	if err := pop.CheckInvariant(); err != nil {
		return err
	}
	return repos.PurchaseOrderProducts().RestoreAvailable(ctx, pop.ID, quantity)
}

// recalculate rebuilds stock for the products behind the given order lines
func (s *PalletService) recalculate(ctx context.Context, repos stock.TransactionalRepositories, purchaseOrderProductIDs []int64) ([]stock.Level, error) {
	if len(purchaseOrderProductIDs) == 0 {
		return nil, nil
	}
	productIDs, err := repos.StockQuery().ProductIDsForPurchaseOrderProducts(ctx, purchaseOrderProductIDs)
	if err != nil {
		return nil, err
	}
	touched := stock.ProductSet{}
	touched.Add(productIDs...)
	return s.recalculator.RecalculateInTx(ctx, repos, touched.IDs()...)
}

func (s *PalletService) lockOrderLine(ctx context.Context, repos stock.TransactionalRepositories, purchaseOrderID, purchaseOrderProductID int64) (*purchasing.PurchaseOrderProduct, error) {
	pop, err := repos.PurchaseOrderProducts().FindByIDForUpdate(ctx, purchaseOrderProductID)
	if err != nil {
		return nil, err
	}
	if pop.PurchaseOrderID != purchaseOrderID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Purchase order product %d does not belong to purchase order %d", pop.ID, purchaseOrderID))
	}
	if !pop.IsActive {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Purchase order product %d is inactive", pop.ID))
	}
	if err := pop.CheckInvariant(); err != nil {
		return nil, err
	}
	return pop, nil
}

func (s *PalletService) ensureNotShipped(ctx context.Context, repos stock.TransactionalRepositories, palletProductIDs ...int64) error {
	if len(palletProductIDs) == 0 {
		return nil
	}
	n, err := repos.Shipments().CountLinesByPalletProducts(ctx, palletProductIDs)
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.NewDomainError(shared.CodePalletInUse,
			fmt.Sprintf("%d outgoing shipment lines reference this pallet", n))
	}
	return nil
}

func (s *PalletService) committed(ctx context.Context, operation string, levels []stock.Level) {
	s.metrics.RecordMutation(ctx, operation)
	s.recalculator.Publish(ctx, levels)
}

func (s *PalletService) reject(ctx context.Context, span trace.Span, operation string, err error) error {
	telemetry.RecordError(span, err)
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		s.metrics.RecordRejection(ctx, operation, domainErr.Code)
		s.logger.Warn("Pallet operation rejected",
			zap.String("operation", operation),
			zap.String("code", domainErr.Code),
			zap.String("reason", domainErr.Message),
		)
		return err
	}
	s.logger.Error("Pallet operation failed", zap.String("operation", operation), zap.Error(err))
	return err
}
