package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionRate configures an override percentage for a vendor, a category,
// or a vendor/category pair. At least one scope column must be set.
type CommissionRate struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID    *uuid.UUID      `gorm:"column:vendor_id;type:uuid;index:commission_rates_vendor_id_idx"`
	CategoryID  *uuid.UUID      `gorm:"column:category_id;type:uuid;index:commission_rates_category_id_idx"`
	RatePercent decimal.Decimal `gorm:"column:rate_percent;type:numeric(5,2);not null"`
	Description *string         `gorm:"column:description"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *CommissionRate) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
