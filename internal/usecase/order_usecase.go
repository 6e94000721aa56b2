package usecase

import (
	"context"
	"errors"

	"storefront_service/internal/domain"
	"storefront_service/internal/notification"

	"github.com/sirupsen/logrus"
)

type OrderUseCase interface {
	GetOrderByID(ctx context.Context, id int) (*domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID, limit, offset int) ([]domain.Order, error)

	// CompletePayment flips the order to (processing, completed), deducting
	// inventory exactly once. sessionID, when present, names the cart to
	// clear after success. Repeat calls are a no-op reported as
	// domain.ErrAlreadyPaid alongside the unchanged order.
	CompletePayment(ctx context.Context, orderID int, sessionID string) (*domain.Order, error)

	// AdvanceStatus walks the fulfilment chain processing -> shipped ->
	// delivered, one step at a time.
	AdvanceStatus(ctx context.Context, orderID int, target domain.OrderStatus) (*domain.Order, error)

	// Cancel is allowed only while the order is still pending (unpaid).
	Cancel(ctx context.Context, orderID int) (*domain.Order, error)

	// UpdateItemQuantity is the administrative override for a not-yet-paid
	// order; the item subtotal and the order total are recomputed together.
	UpdateItemQuantity(ctx context.Context, orderID, itemID, quantity int) (*domain.Order, error)
}

type orderUseCase struct {
	orderRepo domain.OrderRepository
	cartRepo  domain.CartRepository
	producer  notification.Producer
	log       *logrus.Logger
}

func NewOrderUseCase(
	orderRepo domain.OrderRepository,
	cartRepo domain.CartRepository,
	producer notification.Producer,
	logger *logrus.Logger,
) OrderUseCase {
	return &orderUseCase{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		producer:  producer,
		log:       logger,
	}
}

func (uc *orderUseCase) GetOrderByID(ctx context.Context, id int) (*domain.Order, error) {
	if id <= 0 {
		return nil, errors.New("invalid order ID")
	}
	order, err := uc.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get order ID %d: %v", id, err)
		return nil, err
	}
	return order, nil
}

func (uc *orderUseCase) ListOrdersByCustomer(ctx context.Context, customerID, limit, offset int) ([]domain.Order, error) {
	if customerID <= 0 {
		return nil, errors.New("invalid customer ID")
	}
	orders, err := uc.orderRepo.ListOrdersByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list orders for customer %d: %v", customerID, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Retrieved %d orders for customer %d", len(orders), customerID)
	return orders, nil
}

func (uc *orderUseCase) CompletePayment(ctx context.Context, orderID int, sessionID string) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, errors.New("invalid order ID")
	}

	uc.log.Infof("Use Case: Completing payment for order %d", orderID)
	order, err := uc.orderRepo.CompletePayment(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyPaid) {
			// Idempotent retry: report the no-op with the current state.
			current, getErr := uc.orderRepo.GetOrderByID(ctx, orderID)
			if getErr != nil {
				return nil, getErr
			}
			uc.log.Infof("Use Case: Order %d was already paid, nothing to do", orderID)
			return current, domain.ErrAlreadyPaid
		}
		var short *domain.InsufficientStockError
		if errors.As(err, &short) {
			uc.log.Warnf("Use Case: Payment for order %d blocked by stock: %v", orderID, short)
		} else {
			uc.log.Errorf("Use Case: Payment for order %d failed: %v", orderID, err)
		}
		return nil, err
	}

	// The purchase is committed; the session cart has served its purpose.
	// Clearing it is best-effort and never fails the payment.
	if sessionID != "" {
		if clearErr := uc.cartRepo.ClearCart(ctx, sessionID); clearErr != nil {
			uc.log.Errorf("Use Case: Failed to clear cart for session %s after payment of order %d: %v", sessionID, orderID, clearErr)
		}
	}

	if uc.producer != nil {
		uc.producer.PublishOrderEvent(notification.NewOrderPaidEvent(order))
	}

	uc.log.Infof("Use Case: Payment completed for order %d, status is now '%s'", order.ID, order.Status)
	return order, nil
}

func (uc *orderUseCase) AdvanceStatus(ctx context.Context, orderID int, target domain.OrderStatus) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, errors.New("invalid order ID")
	}

	order, err := uc.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Advancing order %d from '%s' to '%s'", orderID, order.Status, target)

	if err := order.CanAdvanceTo(target); err != nil {
		uc.log.Warnf("Use Case: Rejected transition for order %d: %v", orderID, err)
		return nil, err
	}

	updated, err := uc.orderRepo.UpdateOrderStatus(ctx, orderID, order.Status, target)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to advance order %d to '%s': %v", orderID, target, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Order %d advanced to '%s'", updated.ID, updated.Status)
	return updated, nil
}

// Cancel moves a still-pending order to cancelled. Stock is deducted only at
// payment completion, so a pending order holds no reservation and there is
// nothing to release; cancellation after payment is not a supported
// transition.
func (uc *orderUseCase) Cancel(ctx context.Context, orderID int) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, errors.New("invalid order ID")
	}

	order, err := uc.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.CanCancel(); err != nil {
		uc.log.Warnf("Use Case: Rejected cancellation of order %d: %v", orderID, err)
		return nil, err
	}

	updated, err := uc.orderRepo.UpdateOrderStatus(ctx, orderID, domain.StatusPending, domain.StatusCancelled)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to cancel order %d: %v", orderID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Order %d cancelled", updated.ID)
	return updated, nil
}

func (uc *orderUseCase) UpdateItemQuantity(ctx context.Context, orderID, itemID, quantity int) (*domain.Order, error) {
	if orderID <= 0 || itemID <= 0 {
		return nil, errors.New("invalid order or item ID")
	}
	if quantity < 1 {
		return nil, errors.New("item quantity must be at least 1")
	}

	updated, err := uc.orderRepo.UpdateItemQuantity(ctx, orderID, itemID, quantity)
	if err != nil {
		uc.log.Warnf("Use Case: Failed to update item %d of order %d: %v", itemID, orderID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Order %d item %d quantity set to %d, total is now %s", orderID, itemID, quantity, updated.TotalAmount)
	return updated, nil
}
