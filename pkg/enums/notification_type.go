package enums

// NotificationType buckets in-app notifications for rendering.
type NotificationType string

const (
	NotificationOrderPlaced    NotificationType = "order_placed"
	NotificationOrderStatus    NotificationType = "order_status"
	NotificationVendorDecision NotificationType = "vendor_decision"
	NotificationCommissionPaid NotificationType = "commission_paid"
)

// IsValid reports whether the value is a known NotificationType.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationOrderPlaced, NotificationOrderStatus, NotificationVendorDecision, NotificationCommissionPaid:
		return true
	}
	return false
}
