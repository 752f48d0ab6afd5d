package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/martello/marketplace-backend/pkg/enums"
)

// PlacementItem is one (product, quantity) pair in a placement request.
type PlacementItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceInput carries everything needed to place an order. Both addresses are
// snapshotted onto the order as free text.
type PlaceInput struct {
	Items           []PlacementItem
	ShippingAddress string
	BillingAddress  string
}

// UpdateStatusInput carries a vendor-initiated status change.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Target      enums.OrderStatus
	ActorUserID uuid.UUID
}

// OrderCreatedEvent is emitted when a placement commits.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

// OrderStatusChangedEvent is emitted on every guarded status transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	VendorID   uuid.UUID         `json:"vendor_id"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
}
