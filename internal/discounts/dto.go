package discounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/martello/marketplace-backend/pkg/enums"
)

// CreateInput carries the fields for a new discount code.
type CreateInput struct {
	Code           string
	Description    *string
	Type           enums.DiscountType
	Value          decimal.Decimal
	MinOrderAmount *decimal.Decimal
	UsageLimit     int
	StartsAt       time.Time
	EndsAt         time.Time
	ProductID      *uuid.UUID
	CategoryID     *uuid.UUID
	VendorID       *uuid.UUID
}

// UpdateInput carries a partial discount update; nil fields are unchanged.
type UpdateInput struct {
	DiscountID     uuid.UUID
	Description    *string
	Value          *decimal.Decimal
	MinOrderAmount *decimal.Decimal
	UsageLimit     *int
	StartsAt       *time.Time
	EndsAt         *time.Time
	IsActive       *bool
}

// ApplicableFilter narrows the ApplicableFor lookup.
type ApplicableFilter struct {
	ProductID  *uuid.UUID
	CategoryID *uuid.UUID
	VendorID   *uuid.UUID
}
