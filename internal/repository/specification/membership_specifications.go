package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByStudentAndClub struct {
	StudentID uuid.UUID
	ClubID    uuid.UUID
}

func (s ByStudentAndClub) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("student_id = ? AND club_id = ?", s.StudentID, s.ClubID)
}

type ByStudent struct {
	StudentID uuid.UUID
}

func (s ByStudent) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("student_id = ?", s.StudentID)
}

type ByClub struct {
	ClubID uuid.UUID
}

func (s ByClub) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("club_id = ?", s.ClubID)
}

type ByRequestID struct {
	RequestID uuid.UUID
}

func (s ByRequestID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("request_id = ?", s.RequestID)
}

type ByGatewayRef struct {
	Ref string
}

func (s ByGatewayRef) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("gateway_ref = ?", s.Ref)
}

// StatusIs filters on the status column of any lifecycle table.
type StatusIs struct {
	Status string
}

func (s StatusIs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// NotRemoved selects memberships that still count as current.
type NotRemoved struct{}

func (s NotRemoved) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status <> ?", "removed")
}

// UpdatedBefore selects rows untouched since the given instant.
type UpdatedBefore struct {
	Before time.Time
}

func (s UpdatedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("updated_at < ?", s.Before)
}
