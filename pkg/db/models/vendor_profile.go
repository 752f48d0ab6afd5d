package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/martello/marketplace-backend/pkg/enums"
)

// VendorProfile holds the seller-facing identity attached to a user.
type VendorProfile struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	BusinessName    string               `gorm:"column:business_name;not null"`
	Description     *string              `gorm:"column:description"`
	LogoURL         *string              `gorm:"column:logo_url"`
	ApprovalStatus  enums.ApprovalStatus `gorm:"column:approval_status;type:text;not null;default:'pending'"`
	RejectionReason *string              `gorm:"column:rejection_reason"`
	ApprovedAt      *time.Time           `gorm:"column:approved_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *VendorProfile) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
