package persistence

import (
	"errors"

	"github.com/erp/warehouse/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps GORM errors to domain errors. Unknown errors pass
// through unchanged.
func translateError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.NewDomainError(shared.CodeNotFound, entity+" not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewDomainError(shared.CodeDuplicateKey, entity+" already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.NewDomainError(shared.CodeInvalidInput, entity+" references a missing record")
	}
	return err
}

// exists reports whether a row with id is present in model's table
func exists(db *gorm.DB, model any, id int64) (bool, error) {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
