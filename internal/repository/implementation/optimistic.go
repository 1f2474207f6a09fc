package implementation

import (
	"context"
	"fmt"

	"club-membership-be/internal/entity"
	"club-membership-be/internal/repository/specification"

	"gorm.io/gorm"
)

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// updateVersioned writes columns only when the stored version still matches
// and returns the version the row now carries.
func updateVersioned(ctx context.Context, db *gorm.DB, mdl interface{}, id interface{}, version int, columns map[string]interface{}) (int, error) {
	columns["version"] = version + 1
	res := db.WithContext(ctx).
		Model(mdl).
		Where("id = ? AND version = ?", id, version).
		Updates(columns)
	if res.Error != nil {
		return version, res.Error
	}
	if res.RowsAffected == 0 {
		return version, fmt.Errorf("%w: %v (version %d)", entity.ErrConcurrentModification, id, version)
	}
	return version + 1, nil
}
