package usecase

import (
	"context"
	"errors"

	"storefront_service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CartUseCase interface {
	AddItem(ctx context.Context, sessionID string, productID, delta int) (*CartView, error)
	DecrementItem(ctx context.Context, sessionID string, productID int) (*CartView, error)
	RemoveItem(ctx context.Context, sessionID string, productID int) (*CartView, error)
	GetCart(ctx context.Context, sessionID string) (*CartView, error)
}

// CartView is the enumerated cart: entries whose product vanished from the
// catalog are skipped, subtotals are precomputed.
type CartView struct {
	SessionID string          `json:"session_id"`
	Items     []CartViewItem  `json:"items"`
	Total     decimal.Decimal `json:"total"`
}

type CartViewItem struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartUseCase struct {
	cartRepo    domain.CartRepository
	productRepo domain.ProductRepository
	log         *logrus.Logger
}

func NewCartUseCase(cartRepo domain.CartRepository, productRepo domain.ProductRepository, logger *logrus.Logger) CartUseCase {
	return &cartUseCase{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		log:         logger,
	}
}

// AddItem raises the entry quantity by delta (default 1) after checking the
// product's live stock. A quantity the stock cannot cover rejects the whole
// add and leaves the cart unchanged. The unit price is captured from the
// product on first add and never re-synced.
func (uc *cartUseCase) AddItem(ctx context.Context, sessionID string, productID, delta int) (*CartView, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	if productID <= 0 {
		return nil, errors.New("invalid product ID")
	}
	if delta <= 0 {
		delta = 1
	}

	product, err := uc.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		uc.log.Warnf("Use Case: Cart add failed, product %d lookup error: %v", productID, err)
		return nil, err
	}

	cart, err := uc.cartRepo.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	currentQuantity := 0
	if entry := cart.Entry(productID); entry != nil {
		currentQuantity = entry.Quantity
	}
	newQuantity := currentQuantity + delta

	if newQuantity > product.Stock {
		uc.log.Warnf("Use Case: Cart add rejected for product %d (requested: %d, available: %d)", productID, newQuantity, product.Stock)
		return nil, &domain.StockExceededError{
			ProductID:   productID,
			ProductName: product.Name,
			Requested:   newQuantity,
			Available:   product.Stock,
		}
	}

	if entry := cart.Entry(productID); entry != nil {
		entry.Quantity = newQuantity
	} else {
		cart.Add(domain.CartEntry{
			ProductID: productID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  newQuantity,
		})
	}

	if err := uc.cartRepo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}

	uc.log.Infof("Use Case: Product %d quantity set to %d in cart for session %s", productID, newQuantity, sessionID)
	return uc.buildView(ctx, cart), nil
}

// DecrementItem lowers the quantity by one, removing the entry entirely when
// it would drop to zero.
func (uc *cartUseCase) DecrementItem(ctx context.Context, sessionID string, productID int) (*CartView, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	cart, err := uc.cartRepo.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entry := cart.Entry(productID)
	if entry == nil {
		uc.log.Warnf("Use Case: Decrement for product %d not in cart for session %s", productID, sessionID)
		return uc.buildView(ctx, cart), nil
	}

	if entry.Quantity > 1 {
		entry.Quantity--
		uc.log.Infof("Use Case: Product %d quantity lowered to %d for session %s", productID, entry.Quantity, sessionID)
	} else {
		cart.Remove(productID)
		uc.log.Infof("Use Case: Product %d removed from cart for session %s", productID, sessionID)
	}

	if err := uc.cartRepo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return uc.buildView(ctx, cart), nil
}

func (uc *cartUseCase) RemoveItem(ctx context.Context, sessionID string, productID int) (*CartView, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	cart, err := uc.cartRepo.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if cart.Remove(productID) {
		if err := uc.cartRepo.SaveCart(ctx, cart); err != nil {
			return nil, err
		}
		uc.log.Infof("Use Case: Product %d removed from cart for session %s", productID, sessionID)
	}
	return uc.buildView(ctx, cart), nil
}

func (uc *cartUseCase) GetCart(ctx context.Context, sessionID string) (*CartView, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	cart, err := uc.cartRepo.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return uc.buildView(ctx, cart), nil
}

// buildView enumerates the cart, skipping malformed entries and entries whose
// product no longer exists in the catalog. Snapshot prices are kept.
func (uc *cartUseCase) buildView(ctx context.Context, cart *domain.Cart) *CartView {
	view := &CartView{
		SessionID: cart.SessionID,
		Items:     []CartViewItem{},
		Total:     decimal.Zero,
	}

	for _, entry := range cart.Entries {
		if !entry.Valid() {
			uc.log.Warnf("Use Case: Skipping malformed cart entry %+v for session %s", entry, cart.SessionID)
			continue
		}
		if _, err := uc.productRepo.GetProductByID(ctx, entry.ProductID); err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				uc.log.Warnf("Use Case: Skipping cart entry for vanished product %d (session %s)", entry.ProductID, cart.SessionID)
				continue
			}
			// A transient catalog failure should not blank the cart: keep
			// the snapshot entry as-is.
			uc.log.Errorf("Use Case: Catalog lookup failed for product %d, keeping snapshot entry: %v", entry.ProductID, err)
		}

		subtotal := entry.Subtotal()
		view.Items = append(view.Items, CartViewItem{
			ProductID: entry.ProductID,
			Name:      entry.Name,
			UnitPrice: entry.UnitPrice,
			Quantity:  entry.Quantity,
			Subtotal:  subtotal,
		})
		view.Total = view.Total.Add(subtotal)
	}
	return view
}
