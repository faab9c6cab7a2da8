package warehouse

import (
	"context"

	"github.com/erp/warehouse/internal/domain/shared"
)

// LocationRepository persists warehouse locations. ReserveOne and ReleaseOne
// are the only writers of current_capacity.
type LocationRepository interface {
	FindByID(ctx context.Context, id int64) (*WarehouseLocation, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	FindAll(ctx context.Context, filter shared.Filter, availableOnly bool) ([]WarehouseLocation, int64, error)
	Create(ctx context.Context, location *WarehouseLocation) error
	// UpdateCapacity stores a resized location
	UpdateCapacity(ctx context.Context, location *WarehouseLocation) error
	// ReserveOne takes one slot with a guarded decrement
	ReserveOne(ctx context.Context, id int64) error
	// ReleaseOne frees one slot
	ReleaseOne(ctx context.Context, id int64) error
}

// PalletFilter narrows pallet listings
type PalletFilter struct {
	shared.Filter
	PurchaseOrderID     *int64
	WarehouseLocationID *int64
	Unplaced            bool
	ActiveOnly          bool
}

// PalletRepository persists pallets
type PalletRepository interface {
	FindByID(ctx context.Context, id int64) (*Pallet, error)
	// FindByIDForUpdate loads the pallet and its products under a row lock
	FindByIDForUpdate(ctx context.Context, id int64) (*Pallet, error)
	ExistsByNumber(ctx context.Context, palletNumber string) (bool, error)
	FindAll(ctx context.Context, filter PalletFilter) ([]Pallet, int64, error)
	Create(ctx context.Context, pallet *Pallet) error
	UpdateHeader(ctx context.Context, pallet *Pallet) error
	Delete(ctx context.Context, id int64) error
}

// PalletProductRepository is the ledger-facing repository of pallet lines
type PalletProductRepository interface {
	FindByID(ctx context.Context, id int64) (*PalletProduct, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*PalletProduct, error)
	FindByPallet(ctx context.Context, palletID int64) ([]PalletProduct, error)
	Create(ctx context.Context, pp *PalletProduct) error
	// Resize stores a new quantity/available pair computed by PalletProduct.Resize
	Resize(ctx context.Context, pp *PalletProduct) error
	Delete(ctx context.Context, id int64) error
	DeleteByPallet(ctx context.Context, palletID int64) error
	// ConsumeAvailable subtracts quantity when at least quantity is available
	ConsumeAvailable(ctx context.Context, id int64, quantity int) error
	// RestoreAvailable adds quantity back, never above the allocated quantity
	RestoreAvailable(ctx context.Context, id int64, quantity int) error
}
