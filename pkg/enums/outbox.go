package enums

// OutboxEventType names the domain events the platform emits.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventCommissionRecorded OutboxEventType = "commission.recorded"
	EventCommissionPaid     OutboxEventType = "commission.paid"
	EventVendorApproved     OutboxEventType = "vendor.approved"
	EventVendorRejected     OutboxEventType = "vendor.rejected"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateCommission OutboxAggregateType = "commission"
	AggregateVendor     OutboxAggregateType = "vendor"
)
