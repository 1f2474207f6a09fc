package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Payment struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RequestId      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Status         string          `gorm:"type:varchar(20);not null;index:idx_payments_status_updated,priority:1"`
	Amount         decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaidDate       *time.Time
	Method         string         `gorm:"type:varchar(50)"`
	GatewayRef     *string        `gorm:"type:varchar(100);index"`
	CheckoutUrl    string         `gorm:"type:text"`
	Attempts       int            `gorm:"not null;default:0"`
	GatewayPayload datatypes.JSON `gorm:"type:jsonb"`
	Version        int            `gorm:"not null;default:0"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime;index:idx_payments_status_updated,priority:2"`
}

func (Payment) TableName() string {
	return "payments"
}
