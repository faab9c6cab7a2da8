package shipment

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/shipment"
	"github.com/erp/warehouse/internal/domain/warehouse"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ShipmentService ships pallet product units out of the warehouse. Creating,
// resizing and deleting lines moves units between pallet availability and
// shipments; the affected products are recalculated in the same transaction.
type ShipmentService struct {
	scope        stock.TransactionScope
	recalculator *stock.Recalculator
	metrics      stock.LedgerMetrics
	logger       *zap.Logger
}

// NewShipmentService creates a new ShipmentService
func NewShipmentService(scope stock.TransactionScope, recalculator *stock.Recalculator, metrics stock.LedgerMetrics, logger *zap.Logger) *ShipmentService {
	if metrics == nil {
		metrics = stock.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShipmentService{
		scope:        scope,
		recalculator: recalculator,
		metrics:      metrics,
		logger:       logger,
	}
}

// CreateShipment creates a shipment and consumes pallet availability for
// each line.
func (s *ShipmentService) CreateShipment(ctx context.Context, req CreateShipmentRequest) (*ShipmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "create",
		telemetry.WithAttribute("shipment_number", req.ShipmentNumber))
	defer span.End()

	out, err := shipment.NewOutgoingShipment(req.ShipmentNumber, req.Status, req.ShipmentID, req.Reference)
	if err != nil {
		return nil, s.reject(ctx, span, "create_shipment", err)
	}
	lines, err := warehouse.MergeLines(toLines(req.Products))
	if err != nil {
		return nil, s.reject(ctx, span, "create_shipment", err)
	}

	var levels []stock.Level
	err = s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		exists, err := repos.Shipments().ExistsByNumber(ctx, out.ShipmentNumber)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeDuplicateKey, "Shipment "+out.ShipmentNumber+" already exists")
		}
		if err := repos.Shipments().Create(ctx, out); err != nil {
			return err
		}

		ppIDs := make([]int64, 0, len(lines))
		for _, line := range lines {
			created, err := s.ship(ctx, repos, out.ID, line)
			if err != nil {
				return err
			}
			out.Products = append(out.Products, *created)
			ppIDs = append(ppIDs, line.RefID)
		}

		levels, err = s.recalculate(ctx, repos, ppIDs)
		return err
	})
	if err != nil {
		return nil, s.reject(ctx, span, "create_shipment", err)
	}

	s.committed(ctx, "create_shipment", levels)
	s.logger.Info("Outgoing shipment created",
		zap.Int64("shipment_id", out.ID),
		zap.String("shipment_number", out.ShipmentNumber),
		zap.String("status", out.Status),
		zap.Int("lines", len(out.Products)),
	)
	telemetry.SetAttributes(span, telemetry.SpanAttrShipmentID, out.ID, "status", out.Status)
	telemetry.SetOK(span)
	resp := ToShipmentResponse(out)
	return &resp, nil
}

// UpdateShipment changes the header of a shipment and, when req.Products is
// set, reconciles its lines: changed quantities move only their delta, new
// lines consume pallet availability and missing lines give it back.
func (s *ShipmentService) UpdateShipment(ctx context.Context, id int64, req UpdateShipmentRequest) (*ShipmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "update",
		telemetry.WithAttribute(telemetry.SpanAttrShipmentID, id))
	defer span.End()

	var desired []warehouse.Line
	if req.Products != nil {
		var err error
		desired, err = warehouse.MergeLines(toLines(*req.Products))
		if err != nil {
			return nil, s.reject(ctx, span, "update_shipment", err)
		}
	}

	var (
		out    *shipment.OutgoingShipment
		levels []stock.Level
	)
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		out, err = repos.Shipments().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		wasWorking := out.CountsAsWarehouseStock()
		if err := s.updateHeader(ctx, repos, out, req); err != nil {
			return err
		}

		touched := make(map[int64]struct{})
		if wasWorking != out.CountsAsWarehouseStock() {
			for _, line := range out.Products {
				touched[line.PalletProductID] = struct{}{}
			}
		}
		if req.Products != nil {
			changed, err := s.reconcileLines(ctx, repos, out, desired)
			if err != nil {
				return err
			}
			for _, ppID := range changed {
				touched[ppID] = struct{}{}
			}
			if out, err = repos.Shipments().FindByID(ctx, id); err != nil {
				return err
			}
		}

		ppIDs := make([]int64, 0, len(touched))
		for ppID := range touched {
			ppIDs = append(ppIDs, ppID)
		}
		levels, err = s.recalculate(ctx, repos, ppIDs)
		return err
	})
	if err != nil {
		return nil, s.reject(ctx, span, "update_shipment", err)
	}

	s.committed(ctx, "update_shipment", levels)
	s.logger.Info("Outgoing shipment updated",
		zap.Int64("shipment_id", out.ID),
		zap.String("status", out.Status),
		zap.Int("products_recalculated", len(levels)),
	)
	telemetry.SetOK(span)
	resp := ToShipmentResponse(out)
	return &resp, nil
}

// UpdateStatus changes only the status. Moving into or out of WORKING
// recalculates every product on the shipment.
func (s *ShipmentService) UpdateStatus(ctx context.Context, id int64, status string) (*ShipmentResponse, error) {
	return s.UpdateShipment(ctx, id, UpdateShipmentRequest{Status: &status})
}

// DeleteShipment returns every shipped unit to its pallet product and
// removes the shipment.
func (s *ShipmentService) DeleteShipment(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "delete",
		telemetry.WithAttribute(telemetry.SpanAttrShipmentID, id))
	defer span.End()

	var levels []stock.Level
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		out, err := repos.Shipments().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		ppIDs := make([]int64, 0, len(out.Products))
		for _, line := range out.Products {
			if err := s.unship(ctx, repos, line.PalletProductID, line.Quantity); err != nil {
				return err
			}
			ppIDs = append(ppIDs, line.PalletProductID)
		}
		if err := repos.Shipments().DeleteLines(ctx, out.ID); err != nil {
			return err
		}
		if err := repos.Shipments().Delete(ctx, out.ID); err != nil {
			return err
		}
		levels, err = s.recalculate(ctx, repos, ppIDs)
		return err
	})
	if err != nil {
		return s.reject(ctx, span, "delete_shipment", err)
	}

	s.committed(ctx, "delete_shipment", levels)
	s.logger.Info("Outgoing shipment deleted", zap.Int64("shipment_id", id))
	telemetry.SetOK(span)
	return nil
}

// SetLineChecked flags a shipment line as verified. It does not touch the
// ledger.
func (s *ShipmentService) SetLineChecked(ctx context.Context, shipmentID, palletProductID int64, checked bool) error {
	return s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		return repos.Shipments().SetLineChecked(ctx, shipmentID, palletProductID, checked)
	})
}

// GetShipment returns a shipment with its lines
func (s *ShipmentService) GetShipment(ctx context.Context, id int64) (*ShipmentResponse, error) {
	var out *shipment.OutgoingShipment
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		out, err = repos.Shipments().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToShipmentResponse(out)
	return &resp, nil
}

// ListShipments lists shipments, optionally by status
func (s *ShipmentService) ListShipments(ctx context.Context, filter ShipmentListFilter) (shared.Paginated[ShipmentResponse], error) {
	f := shipment.ShipmentFilter{
		Filter: shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize(),
	}
	if filter.Status != "" {
		f.Status = shipment.NormalizeStatus(filter.Status)
	}
	var (
		items []shipment.OutgoingShipment
		total int64
	)
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		items, total, err = repos.Shipments().FindAll(ctx, f)
		return err
	})
	if err != nil {
		return shared.Paginated[ShipmentResponse]{}, err
	}
	resp := make([]ShipmentResponse, 0, len(items))
	for i := range items {
		resp = append(resp, ToShipmentResponse(&items[i]))
	}
	return shared.NewPaginated(resp, total, f.Page, f.PageSize), nil
}

func (s *ShipmentService) updateHeader(ctx context.Context, repos stock.TransactionalRepositories, out *shipment.OutgoingShipment, req UpdateShipmentRequest) error {
	changed := false
	if req.ShipmentNumber != nil && *req.ShipmentNumber != out.ShipmentNumber {
		if _, err := shipment.NewOutgoingShipment(*req.ShipmentNumber, "", nil, nil); err != nil {
			return err
		}
		exists, err := repos.Shipments().ExistsByNumber(ctx, *req.ShipmentNumber)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeDuplicateKey, "Shipment "+*req.ShipmentNumber+" already exists")
		}
		out.ShipmentNumber = *req.ShipmentNumber
		changed = true
	}
	if req.Status != nil {
		if status := shipment.NormalizeStatus(*req.Status); status != out.Status {
			out.Status = status
			changed = true
		}
	}
	if req.ShipmentID != nil {
		out.ShipmentID = req.ShipmentID
		changed = true
	}
	if req.Reference != nil {
		out.Reference = req.Reference
		changed = true
	}
	if !changed {
		return nil
	}
	return repos.Shipments().UpdateHeader(ctx, out)
}

// reconcileLines applies the line plan and returns the pallet products whose
// quantities moved.
func (s *ShipmentService) reconcileLines(ctx context.Context, repos stock.TransactionalRepositories, out *shipment.OutgoingShipment, desired []warehouse.Line) ([]int64, error) {
	current := make([]warehouse.Line, 0, len(out.Products))
	for _, line := range out.Products {
		current = append(current, warehouse.Line{RefID: line.PalletProductID, Quantity: line.Quantity})
	}
	plan := warehouse.PlanLines(current, desired)
	moved := make([]int64, 0, len(plan))
	for _, change := range plan {
		var err error
		switch {
		case change.IsAdded():
			_, err = s.ship(ctx, repos, out.ID, warehouse.Line{RefID: change.RefID, Quantity: change.New})
		case change.IsRemoved():
			if err = s.unship(ctx, repos, change.RefID, change.Old); err == nil {
				err = repos.Shipments().DeleteLine(ctx, out.ID, change.RefID)
			}
		default:
			err = s.reship(ctx, repos, out.ID, change)
		}
		if err != nil {
			return nil, err
		}
		moved = append(moved, change.RefID)
	}
	return moved, nil
}

// reship moves only the delta of a changed shipment line
func (s *ShipmentService) reship(ctx context.Context, repos stock.TransactionalRepositories, shipmentID int64, change warehouse.LineChange) error {
	pp, err := s.lockPalletProduct(ctx, repos, change.RefID)
	if err != nil {
		return err
	}
	if err := warehouse.CheckReallocation(change.Old, change.New, pp.AvailableQuantity); err != nil {
		return err
	}
	delta := change.Delta()
	if delta > 0 {
		err = repos.PalletProducts().ConsumeAvailable(ctx, pp.ID, delta)
	} else {
		err = repos.PalletProducts().RestoreAvailable(ctx, pp.ID, -delta)
	}
	if err != nil {
		return err
	}
	return repos.Shipments().UpdateLineQuantity(ctx, shipmentID, pp.ID, change.New)
}

// ship consumes line.Quantity units of a pallet product onto a shipment
func (s *ShipmentService) ship(ctx context.Context, repos stock.TransactionalRepositories, shipmentID int64, line warehouse.Line) (*shipment.OutgoingShipmentProduct, error) {
	pp, err := s.lockPalletProduct(ctx, repos, line.RefID)
	if err != nil {
		return nil, err
	}
	if err := warehouse.CheckAllocation(line.Quantity, pp.AvailableQuantity); err != nil {
		return nil, err
	}
	if err := repos.PalletProducts().ConsumeAvailable(ctx, pp.ID, line.Quantity); err != nil {
		return nil, err
	}
	created, err := shipment.NewOutgoingShipmentProduct(shipmentID, pp.ID, line.Quantity)
	if err != nil {
		return nil, err
	}
	if err := repos.Shipments().CreateLine(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// unship returns quantity units to a pallet product
func (s *ShipmentService) unship(ctx context.Context, repos stock.TransactionalRepositories, palletProductID int64, quantity int) error {
	if _, err := repos.PalletProducts().FindByIDForUpdate(ctx, palletProductID); err != nil {
		return err
	}
	return repos.PalletProducts().RestoreAvailable(ctx, palletProductID, quantity)
}

func (s *ShipmentService) lockPalletProduct(ctx context.Context, repos stock.TransactionalRepositories, id int64) (*warehouse.PalletProduct, error) {
	pp, err := repos.PalletProducts().FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pp.IsActive {
		return nil, shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Pallet product %d is inactive", id))
	}
	if err := pp.CheckInvariant(); err != nil {
		return nil, err
	}
	return pp, nil
}

func (s *ShipmentService) recalculate(ctx context.Context, repos stock.TransactionalRepositories, palletProductIDs []int64) ([]stock.Level, error) {
	if len(palletProductIDs) == 0 {
		return nil, nil
	}
	productIDs, err := repos.StockQuery().ProductIDsForPalletProducts(ctx, palletProductIDs)
	if err != nil {
		return nil, err
	}
	touched := stock.ProductSet{}
	touched.Add(productIDs...)
	return s.recalculator.RecalculateInTx(ctx, repos, touched.IDs()...)
}

func (s *ShipmentService) committed(ctx context.Context, operation string, levels []stock.Level) {
	s.metrics.RecordMutation(ctx, operation)
	s.recalculator.Publish(ctx, levels)
}

func (s *ShipmentService) reject(ctx context.Context, span trace.Span, operation string, err error) error {
	telemetry.RecordError(span, err)
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		s.metrics.RecordRejection(ctx, operation, domainErr.Code)
		s.logger.Warn("Shipment operation rejected",
			zap.String("operation", operation),
			zap.String("code", domainErr.Code),
			zap.String("reason", domainErr.Message),
		)
		return err
	}
	s.logger.Error("Shipment operation failed", zap.String("operation", operation), zap.Error(err))
	return err
}
