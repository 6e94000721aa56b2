package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront_service/internal/domain"
	"storefront_service/internal/notification"

	"github.com/sirupsen/logrus"
)

// CheckoutInfo is the contact/address snapshot captured at checkout time.
// CustomerID is nil for guest checkout.
type CheckoutInfo struct {
	CustomerID   *int   `json:"customer_id,omitempty"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Pincode      string `json:"pincode"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	Landmark     string `json:"landmark"`
	City         string `json:"city"`
	State        string `json:"state"`
}

func (info *CheckoutInfo) validate() error {
	missing := []string{}
	if strings.TrimSpace(info.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if strings.TrimSpace(info.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(info.AddressLine1) == "" {
		missing = append(missing, "address_line1")
	}
	if strings.TrimSpace(info.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(info.State) == "" {
		missing = append(missing, "state")
	}
	if strings.TrimSpace(info.Pincode) == "" {
		missing = append(missing, "pincode")
	}
	if len(missing) > 0 {
		return fmt.Errorf("checkout info is missing required fields: %s", strings.Join(missing, ", "))
	}
	if info.CustomerID != nil && *info.CustomerID <= 0 {
		return errors.New("invalid customer ID")
	}
	return nil
}

type CheckoutUseCase interface {
	Checkout(ctx context.Context, sessionID string, info CheckoutInfo) (*domain.Order, error)
}

type checkoutUseCase struct {
	cartRepo    domain.CartRepository
	productRepo domain.ProductRepository
	orderRepo   domain.OrderRepository
	producer    notification.Producer
	log         *logrus.Logger
}

func NewCheckoutUseCase(
	cartRepo domain.CartRepository,
	productRepo domain.ProductRepository,
	orderRepo domain.OrderRepository,
	producer notification.Producer,
	logger *logrus.Logger,
) CheckoutUseCase {
	return &checkoutUseCase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		producer:    producer,
		log:         logger,
	}
}

// Checkout materializes an order from the session cart, all-or-nothing.
// Every entry is re-validated against the live stock (it may have changed
// since the items were added); the first shortfall aborts the whole checkout
// with no order created. Inventory is NOT touched here: stock is committed
// only at payment completion, so an abandoned pending order locks nothing
// away from other shoppers. The cart is also left untouched, so checkout can
// safely be retried until payment succeeds.
func (uc *checkoutUseCase) Checkout(ctx context.Context, sessionID string, info CheckoutInfo) (*domain.Order, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	if err := info.validate(); err != nil {
		uc.log.Warnf("Use Case: Checkout rejected for session %s: %v", sessionID, err)
		return nil, err
	}

	cart, err := uc.cartRepo.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		uc.log.Warnf("Use Case: Checkout attempted with empty cart for session %s", sessionID)
		return nil, domain.ErrEmptyCart
	}

	uc.log.Infof("Use Case: Validating %d cart entries against live stock for session %s", len(cart.Entries), sessionID)

	items := []domain.OrderItem{}
	for _, entry := range cart.Entries {
		if !entry.Valid() {
			uc.log.Warnf("Use Case: Skipping malformed cart entry %+v for session %s", entry, sessionID)
			continue
		}

		product, err := uc.productRepo.GetProductByID(ctx, entry.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				uc.log.Warnf("Use Case: Skipping cart entry for vanished product %d (session %s)", entry.ProductID, sessionID)
				continue
			}
			return nil, fmt.Errorf("stock check failed for product %d: %w", entry.ProductID, err)
		}

		if entry.Quantity > product.Stock {
			uc.log.Warnf("Use Case: Checkout rejected, product %d '%s' short (requested: %d, available: %d)", product.ID, product.Name, entry.Quantity, product.Stock)
			return nil, &domain.StockExceededError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   entry.Quantity,
				Available:   product.Stock,
			}
		}

		item := domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Price:       entry.UnitPrice,
			Quantity:    entry.Quantity,
		}
		if item.Price.IsZero() {
			// Snapshot price was never captured; fall back to the current
			// catalog price.
			item.Price = product.Price
		}
		item.SetQuantity(entry.Quantity)
		items = append(items, item)
	}

	if len(items) == 0 {
		uc.log.Warnf("Use Case: Checkout for session %s has no valid entries left", sessionID)
		return nil, domain.ErrEmptyCart
	}

	order := &domain.Order{
		CustomerID:    info.CustomerID,
		FullName:      strings.TrimSpace(info.FullName),
		Email:         strings.TrimSpace(info.Email),
		Phone:         strings.TrimSpace(info.Phone),
		Pincode:       strings.TrimSpace(info.Pincode),
		AddressLine1:  strings.TrimSpace(info.AddressLine1),
		AddressLine2:  strings.TrimSpace(info.AddressLine2),
		Landmark:      strings.TrimSpace(info.Landmark),
		City:          strings.TrimSpace(info.City),
		State:         strings.TrimSpace(info.State),
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentPending,
		Items:         items,
	}
	order.Address = order.FormatAddress()
	order.RecomputeTotal()

	createdOrder, err := uc.orderRepo.CreateOrder(ctx, order)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create order for session %s: %v", sessionID, err)
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	if uc.producer != nil {
		uc.producer.PublishOrderEvent(notification.NewOrderCreatedEvent(createdOrder))
	}

	uc.log.Infof("Use Case: Order %d created from session %s with %d items, total %s", createdOrder.ID, sessionID, len(createdOrder.Items), createdOrder.TotalAmount)
	return createdOrder, nil
}
