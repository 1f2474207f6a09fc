package model

import (
	"time"

	"github.com/google/uuid"
)

// Membership uniqueness per (student, club) is enforced by the partial index
// ux_memberships_active_pair created in cmd/migrate, since gorm tags cannot
// express a WHERE clause.
type Membership struct {
	Id              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	StudentId       uuid.UUID  `gorm:"type:uuid;not null;index:idx_memberships_pair,priority:1"`
	ClubId          uuid.UUID  `gorm:"type:uuid;not null;index:idx_memberships_pair,priority:2"`
	RequestId       *uuid.UUID `gorm:"type:uuid"`
	Status          string     `gorm:"type:varchar(20);not null;index"`
	JoinDate        *time.Time
	Note            string    `gorm:"type:text"`
	StatusChangedAt time.Time `gorm:"not null"`
	Version         int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (Membership) TableName() string {
	return "memberships"
}
