package warehouse

import (
	"context"

	"github.com/erp/warehouse/internal/application/stock"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/domain/warehouse"
	"github.com/erp/warehouse/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LocationService manages warehouse locations and exposes the slot
// allocator used by pallet placement.
type LocationService struct {
	scope  stock.TransactionScope
	logger *zap.Logger
}

// NewLocationService creates a new LocationService
func NewLocationService(scope stock.TransactionScope, logger *zap.Logger) *LocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationService{scope: scope, logger: logger}
}

// CreateLocation registers a location with every slot free
func (s *LocationService) CreateLocation(ctx context.Context, req CreateLocationRequest) (*LocationResponse, error) {
	loc, err := warehouse.NewWarehouseLocation(req.Location, req.Capacity)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		exists, err := repos.Locations().ExistsByCode(ctx, loc.Location)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeDuplicateKey, "Location "+loc.Location+" already exists")
		}
		return repos.Locations().Create(ctx, loc)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Warehouse location created",
		zap.Int64("location_id", loc.ID),
		zap.String("location", loc.Location),
		zap.Int("capacity", loc.Capacity),
	)
	resp := ToLocationResponse(loc)
	return &resp, nil
}

// UpdateCapacity resizes a location; occupied slots stay occupied
func (s *LocationService) UpdateCapacity(ctx context.Context, id int64, capacity int) (*LocationResponse, error) {
	var loc *warehouse.WarehouseLocation
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		loc, err = repos.Locations().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := loc.CheckInvariant(); err != nil {
			return err
		}
		if err := loc.Resize(capacity); err != nil {
			return err
		}
		return repos.Locations().UpdateCapacity(ctx, loc)
	})
	if err != nil {
		return nil, err
	}
	resp := ToLocationResponse(loc)
	return &resp, nil
}

// FindByID returns a location or NOT_FOUND
func (s *LocationService) FindByID(ctx context.Context, id int64) (*LocationResponse, error) {
	var loc *warehouse.WarehouseLocation
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		loc, err = repos.Locations().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToLocationResponse(loc)
	return &resp, nil
}

// IsAvailable reports whether the location has a free slot
func (s *LocationService) IsAvailable(ctx context.Context, id int64) (bool, error) {
	loc, err := s.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return loc.IsAvailable, nil
}

// ListLocations lists locations, optionally only those with a free slot
func (s *LocationService) ListLocations(ctx context.Context, page, pageSize int, availableOnly bool) (shared.Paginated[LocationResponse], error) {
	filter := pageFilter(page, pageSize)
	var (
		locs  []warehouse.WarehouseLocation
		total int64
	)
	err := s.scope.Execute(ctx, func(repos stock.TransactionalRepositories) error {
		var err error
		locs, total, err = repos.Locations().FindAll(ctx, filter, availableOnly)
		return err
	})
	if err != nil {
		return shared.Paginated[LocationResponse]{}, err
	}
	items := make([]LocationResponse, 0, len(locs))
	for i := range locs {
		items = append(items, ToLocationResponse(&locs[i]))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// reserveSlot takes one slot of locationID inside the caller's transaction
func reserveSlot(ctx context.Context, repos stock.TransactionalRepositories, locationID int64) error {
	_, span := telemetry.StartServiceSpan(ctx, "location", "reserve_one",
		telemetry.WithAttribute(telemetry.SpanAttrLocationID, locationID))
	defer span.End()
	if err := repos.Locations().ReserveOne(ctx, locationID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// releaseSlot frees one slot of locationID inside the caller's transaction
func releaseSlot(ctx context.Context, repos stock.TransactionalRepositories, locationID int64) error {
	return repos.Locations().ReleaseOne(ctx, locationID)
}
