package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/enums"
)

// Discount is a promotional code. Scope columns narrow where the code can be
// surfaced: product-scoped, or category/vendor-scoped. UsageLimit zero means
// unlimited redemptions.
type Discount struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code           string             `gorm:"column:code;type:text;not null"`
	Description    *string            `gorm:"column:description"`
	Type           enums.DiscountType `gorm:"column:type;type:text;not null"`
	Value          decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	MinOrderAmount *decimal.Decimal   `gorm:"column:min_order_amount;type:numeric(12,2)"`
	UsageLimit     int                `gorm:"column:usage_limit;not null;default:0"`
	UsageCount     int                `gorm:"column:usage_count;not null;default:0"`
	StartsAt       time.Time          `gorm:"column:starts_at;not null"`
	EndsAt         time.Time          `gorm:"column:ends_at;not null"`
	IsActive       bool               `gorm:"column:is_active;not null;default:true"`
	ProductID      *uuid.UUID         `gorm:"column:product_id;type:uuid;index:discounts_product_id_idx"`
	CategoryID     *uuid.UUID         `gorm:"column:category_id;type:uuid;index:discounts_category_id_idx"`
	VendorID       *uuid.UUID         `gorm:"column:vendor_id;type:uuid;index:discounts_vendor_id_idx"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Discount) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
