package shared

import "time"

// BaseEntity carries the auto-increment identity and the timestamps GORM
// maintains on every ledger table.
type BaseEntity struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsNew reports whether the row has not been inserted yet
func (e *BaseEntity) IsNew() bool {
	return e.ID == 0
}
