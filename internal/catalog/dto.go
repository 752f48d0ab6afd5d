package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductInput carries the fields a vendor submits for a new listing.
type CreateProductInput struct {
	OwnerUserID   uuid.UUID
	CategoryID    uuid.UUID
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
	ImageURLs     []string
}

// UpdateProductInput carries a partial update; nil fields are left unchanged.
type UpdateProductInput struct {
	ProductID     uuid.UUID
	OwnerUserID   uuid.UUID
	CategoryID    *uuid.UUID
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
	ImageURLs     []string
	IsListed      *bool
}

// CreateCategoryInput carries the fields for a new catalog category.
type CreateCategoryInput struct {
	Name        string
	Description *string
	ParentID    *uuid.UUID
}

// UpdateCategoryInput carries a partial category update.
type UpdateCategoryInput struct {
	CategoryID  uuid.UUID
	Name        *string
	Description *string
}
