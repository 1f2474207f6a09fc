package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MembershipRequest struct {
	Id          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	StudentId   uuid.UUID        `gorm:"type:uuid;not null;index:idx_membership_requests_pair,priority:1"`
	ClubId      uuid.UUID        `gorm:"type:uuid;not null;index:idx_membership_requests_pair,priority:2;index"`
	Reason      string           `gorm:"type:text;not null"`
	FullName    string           `gorm:"type:varchar(255);not null"`
	Email       string           `gorm:"type:varchar(255);not null"`
	Phone       string           `gorm:"type:varchar(50);not null"`
	Status      string           `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentId   *uuid.UUID       `gorm:"type:uuid"`
	Amount      *decimal.Decimal `gorm:"type:decimal(14,2)"`
	Note        string           `gorm:"type:text"`
	RequestDate time.Time        `gorm:"not null;index:idx_membership_requests_pair,priority:3"`
	DecidedAt   *time.Time
	Version     int       `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (MembershipRequest) TableName() string {
	return "membership_requests"
}
