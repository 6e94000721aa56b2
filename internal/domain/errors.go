package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrEmptyCart       = errors.New("cart is empty")

	// ErrAlreadyPaid signals an idempotent no-op: the order was paid earlier
	// and the repeated call changed nothing.
	ErrAlreadyPaid = errors.New("order has already been paid")
)

// InsufficientStockError is returned when a reservation asks for more units
// than the product currently has. It is recoverable: the order stays payable
// and the caller can retry once stock is replenished.
type InsufficientStockError struct {
	ProductID   int
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s (requested: %d, available: %d)", name, e.Requested, e.Available)
}

// StockExceededError is the cart/checkout-time variant: the requested cart
// quantity cannot be satisfied by the live stock, so the whole add or
// checkout is rejected and nothing is changed.
type StockExceededError struct {
	ProductID   int
	ProductName string
	Requested   int
	Available   int
}

func (e *StockExceededError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("only %d items of %s available in stock (requested: %d)", e.Available, name, e.Requested)
}

// InvalidTransitionError reports a status change that violates the order
// state machine, with enough context to render a user-facing message.
type InvalidTransitionError struct {
	OrderID       int
	From          OrderStatus
	To            OrderStatus
	PaymentStatus PaymentStatus
	Reason        string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot move order %d from '%s' to '%s': %s", e.OrderID, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot move order %d from '%s' to '%s'", e.OrderID, e.From, e.To)
}
