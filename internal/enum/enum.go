package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusArchived  = "archived"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusArchived,
}

// ── Change stream event types ──

const (
	EventConnected           = "connected"
	EventPing                = "ping"
	EventOrderCreated        = "order.created"
	EventOrderStatusChanged  = "order.status_changed"
	EventOrderItemsChanged   = "order.items_changed"
	EventOrderAddressChanged = "order.address_changed"
	EventOrderDeleted        = "order.deleted"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodPix      = "pix"
	PaymentMethodTransfer = "transfer"
)

const (
	UserRoleAdmin = "ADMIN"
	UserRoleStaff = "STAFF"
)

const (
	NotificationCustomer = "customer"
	NotificationStaff    = "staff"
)
