package notification

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicOrderEvents = "order-events"

	EventOrderCreated = "order.created"
	EventOrderPaid    = "order.paid"
)

// OrderEvent is the best-effort notification payload published when an order
// is created or its payment completes. Consumers (email, admin feeds) are
// outside this service.
type OrderEvent struct {
	Type       string          `json:"type"`
	OrderID    int             `json:"order_id"`
	Email      string          `json:"email,omitempty"`
	FullName   string          `json:"full_name"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}
