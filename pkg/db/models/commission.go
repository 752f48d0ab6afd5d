package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/enums"
)

// Commission is one ledger row recording the platform cut on an order.
type Commission struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex:commissions_order_id_key"`
	VendorID         uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index:commissions_vendor_id_idx"`
	OrderAmount      decimal.Decimal        `gorm:"column:order_amount;type:numeric(12,2);not null"`
	RatePercent      decimal.Decimal        `gorm:"column:rate_percent;type:numeric(5,2);not null"`
	CommissionAmount decimal.Decimal        `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	VendorEarnings   decimal.Decimal        `gorm:"column:vendor_earnings;type:numeric(12,2);not null"`
	Status           enums.CommissionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaidAt           *time.Time             `gorm:"column:paid_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Commission) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
