package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"asc", "ASC"},
		{"DESC", "DESC"},
		{" desc ", "DESC"},
		{"", "ASC"},
		{"sideways", "ASC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateSortOrder(tt.in), tt.in)
	}
}

func TestValidateSortField(t *testing.T) {
	assert.Equal(t, "pallet_number", ValidateSortField("pallet_number", PalletSortFields, "id"))
	assert.Equal(t, "id", ValidateSortField("pallet_number; DROP TABLE pallets", PalletSortFields, "id"))
	assert.Equal(t, "id", ValidateSortField("", LocationSortFields, "id"))
	assert.Equal(t, "created_at", ValidateSortField("created_at", ShipmentSortFields, "id"))
	assert.Equal(t, "id", ValidateSortField("status", LocationSortFields, "id"))
}
