package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/enums"
)

// Order is the customer-facing purchase aggregate. Every item in an order
// belongs to the same vendor, so the vendor id is denormalized here.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string            `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	CustomerID      uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index:orders_customer_id_idx"`
	VendorID        uuid.UUID         `gorm:"column:vendor_id;type:uuid;not null;index:orders_vendor_id_idx"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	ShippingAddress string            `gorm:"column:shipping_address;type:text;not null"`
	BillingAddress  string            `gorm:"column:billing_address;type:text;not null"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
