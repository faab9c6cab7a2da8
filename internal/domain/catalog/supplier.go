package catalog

import (
	"strings"

	"github.com/erp/warehouse/internal/domain/shared"
)

// Supplier is the vendor a purchase order is placed with
type Supplier struct {
	shared.BaseEntity
	Name     string `gorm:"type:varchar(200);not null;uniqueIndex" json:"name"`
	Contact  string `gorm:"type:varchar(200)" json:"contact"`
	Email    string `gorm:"type:varchar(200)" json:"email"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}

// TableName returns the table name for GORM
func (Supplier) TableName() string {
	return "suppliers"
}

// NewSupplier creates a new active supplier
func NewSupplier(name, contact, email string) (*Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Supplier name cannot be empty")
	}
	return &Supplier{
		Name:     name,
		Contact:  strings.TrimSpace(contact),
		Email:    strings.TrimSpace(email),
		IsActive: true,
	}, nil
}
