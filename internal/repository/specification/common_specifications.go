package specification

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ByID filters by ID
type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// OrderBy applies ordering
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}

// ForUpdate takes a row lock for the rest of the surrounding transaction.
type ForUpdate struct{}

func (s ForUpdate) Apply(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
