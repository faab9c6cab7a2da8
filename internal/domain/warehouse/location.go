package warehouse

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
)

// WarehouseLocation is a physical slot group that holds a fixed number of
// pallets. CurrentCapacity is the number of free slots.
type WarehouseLocation struct {
	shared.BaseEntity
	Location        string `gorm:"type:varchar(50);not null;uniqueIndex" json:"location"`
	Capacity        int    `gorm:"not null" json:"capacity"`
	CurrentCapacity int    `gorm:"not null" json:"current_capacity"`
}

// TableName returns the table name for GORM
func (WarehouseLocation) TableName() string {
	return "warehouse_locations"
}

// NewWarehouseLocation creates an empty location with every slot free
func NewWarehouseLocation(code string, capacity int) (*WarehouseLocation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Location code cannot be empty")
	}
	if capacity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Location capacity must be positive")
	}
	return &WarehouseLocation{
		Location:        code,
		Capacity:        capacity,
		CurrentCapacity: capacity,
	}, nil
}

// IsAvailable reports whether at least one slot is free
func (l *WarehouseLocation) IsAvailable() bool {
	return l.CurrentCapacity > 0
}

// Occupied returns the number of slots taken by pallets
func (l *WarehouseLocation) Occupied() int {
	return l.Capacity - l.CurrentCapacity
}

// Resize changes the total capacity keeping occupied slots occupied
func (l *WarehouseLocation) Resize(capacity int) error {
	if capacity <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Location capacity must be positive")
	}
	if capacity < l.Occupied() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Location capacity cannot drop below the number of placed pallets")
	}
	l.CurrentCapacity = capacity - l.Occupied()
	l.Capacity = capacity
	return nil
}

// CheckInvariant verifies 0 <= current_capacity <= capacity
func (l *WarehouseLocation) CheckInvariant() error {
	if l.CurrentCapacity < 0 || l.CurrentCapacity > l.Capacity {
		return shared.ErrLedgerInconsistent
	}
	return nil
}
