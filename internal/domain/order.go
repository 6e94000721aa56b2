package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func IsValidStatus(status OrderStatus) bool {
	switch status {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

type Order struct {
	ID         int  `json:"id"`
	CustomerID *int `json:"customer_id,omitempty"` // nil for guest checkout

	// Contact/address snapshot, captured at checkout and immutable afterwards.
	FullName     string `json:"full_name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone"`
	Pincode      string `json:"pincode"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	Landmark     string `json:"landmark,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Address      string `json:"address"`

	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Paid          bool            `json:"paid"`

	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	Items []OrderItem `json:"items"`
}

type OrderItem struct {
	ID          int             `json:"id"`
	OrderID     int             `json:"order_id"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

func (i *OrderItem) SetPrice(price decimal.Decimal) {
	i.Price = price
	i.recompute()
}

func (i *OrderItem) SetQuantity(quantity int) {
	i.Quantity = quantity
	i.recompute()
}

func (i *OrderItem) recompute() {
	i.Subtotal = i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// RecomputeTotal keeps the header total equal to the sum of item subtotals.
// Called at creation and after any item mutation.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal)
	}
	o.TotalAmount = total
}

// FormatAddress builds the combined human-readable address string stored
// alongside the field breakdown.
func (o *Order) FormatAddress() string {
	parts := []string{}
	if o.AddressLine1 != "" || o.AddressLine2 != "" {
		parts = append(parts, strings.Trim(strings.TrimSpace(o.AddressLine1+", "+o.AddressLine2), ", "))
	}
	if o.Landmark != "" {
		parts = append(parts, "Landmark: "+o.Landmark)
	}
	cityLine := strings.Trim(strings.TrimSpace(o.City+", "+o.State), ", ")
	if o.Pincode != "" {
		if cityLine != "" {
			cityLine += " - " + o.Pincode
		} else {
			cityLine = o.Pincode
		}
	}
	if cityLine != "" {
		parts = append(parts, cityLine)
	}
	return strings.Join(parts, "\n")
}

// CanAdvanceTo validates a forward fulfillment transition. Shipping requires
// prior processing, delivery requires prior shipping, both require a
// completed payment. Delivered and cancelled are terminal.
func (o *Order) CanAdvanceTo(target OrderStatus) error {
	invalid := func(reason string) error {
		return &InvalidTransitionError{
			OrderID:       o.ID,
			From:          o.Status,
			To:            target,
			PaymentStatus: o.PaymentStatus,
			Reason:        reason,
		}
	}

	if !IsValidStatus(target) {
		return invalid("unknown target status")
	}
	if o.Status == StatusCancelled {
		return invalid("order is cancelled")
	}
	if o.Status == StatusDelivered {
		return invalid("order is already delivered")
	}

	switch target {
	case StatusShipped:
		if o.PaymentStatus != PaymentCompleted {
			return invalid("payment is not completed")
		}
		if o.Status != StatusProcessing {
			return invalid("only a processing order can be shipped")
		}
	case StatusDelivered:
		if o.PaymentStatus != PaymentCompleted {
			return invalid("payment is not completed")
		}
		if o.Status != StatusShipped {
			return invalid("only a shipped order can be delivered")
		}
	default:
		// pending and processing are entered by checkout and payment
		// completion only, cancelled by Cancel only.
		return invalid("status is not reachable through fulfilment")
	}
	return nil
}

// CanCancel allows cancellation only before payment, while the order is
// still pending. Paid orders move forward only.
func (o *Order) CanCancel() error {
	if o.Status == StatusPending {
		return nil
	}
	return &InvalidTransitionError{
		OrderID:       o.ID,
		From:          o.Status,
		To:            StatusCancelled,
		PaymentStatus: o.PaymentStatus,
		Reason:        "only a pending order can be cancelled",
	}
}

type OrderRepository interface {
	// CreateOrder writes the order header and all items as one atomic unit.
	CreateOrder(ctx context.Context, order *Order) (*Order, error)
	GetOrderByID(ctx context.Context, id int) (*Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID, limit, offset int) ([]Order, error)

	// CompletePayment performs the payment transition as a single atomic
	// unit: serialize on the order row, deduct stock for every item, then
	// flip payment_status/status and set paid_at the first time only.
	// Repeat calls change nothing and report ErrAlreadyPaid.
	CompletePayment(ctx context.Context, orderID int) (*Order, error)

	// UpdateOrderStatus moves the order from exactly the given status to the
	// target, setting shipped_at/delivered_at the first time only. A stale
	// `from` yields *InvalidTransitionError.
	UpdateOrderStatus(ctx context.Context, id int, from, to OrderStatus) (*Order, error)

	// UpdateItemQuantity is the administrative override for a not-yet-paid
	// order; it recomputes the item subtotal and the order total together.
	UpdateItemQuantity(ctx context.Context, orderID, itemID, quantity int) (*Order, error)
}
