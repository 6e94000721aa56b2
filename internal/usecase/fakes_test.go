package usecase

import (
	"context"
	"sync"
	"time"

	"storefront_service/internal/domain"
	"storefront_service/internal/notification"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// memProductRepo is an in-memory catalog plus inventory ledger. Reserve and
// Release mirror the guarded SQL updates: the read-check-decrement sequence
// runs under one lock so concurrent reservations cannot oversell.
type memProductRepo struct {
	mu       sync.Mutex
	products map[int]*domain.Product
	nextID   int
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: map[int]*domain.Product{}, nextID: 1}
}

func (r *memProductRepo) put(p domain.Product) *domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		p.ID = r.nextID
		r.nextID++
	}
	p.IsAvailable = p.Stock > 0
	stored := p
	r.products[p.ID] = &stored
	return &p
}

func (r *memProductRepo) CreateProduct(_ context.Context, product *domain.Product) (*domain.Product, error) {
	return r.put(*product), nil
}

func (r *memProductRepo) GetProductByID(_ context.Context, id int) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memProductRepo) GetProductBySlug(_ context.Context, slug string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Slug == slug {
			copied := *p
			return &copied, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (r *memProductRepo) ListProducts(_ context.Context, _, _ int, availableOnly bool) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	products := []domain.Product{}
	for _, p := range r.products {
		if availableOnly && !p.IsAvailable {
			continue
		}
		products = append(products, *p)
	}
	return products, nil
}

func (r *memProductRepo) UpdateProduct(_ context.Context, id int, updates map[string]interface{}) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if stock, ok := updates["stock"].(int); ok {
		p.Stock = stock
		p.IsAvailable = stock > 0
	}
	if available, ok := updates["is_available"].(bool); ok {
		p.IsAvailable = available
	}
	if name, ok := updates["name"].(string); ok {
		p.Name = name
	}
	copied := *p
	return &copied, nil
}

func (r *memProductRepo) Reserve(_ context.Context, productID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Stock < quantity {
		return &domain.InsufficientStockError{
			ProductID:   productID,
			ProductName: p.Name,
			Requested:   quantity,
			Available:   p.Stock,
		}
	}
	p.Stock -= quantity
	p.IsAvailable = p.Stock > 0
	return nil
}

func (r *memProductRepo) Release(_ context.Context, productID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock += quantity
	p.IsAvailable = true
	return nil
}

// memCartRepo keeps deep-copied cart snapshots per session, like the redis
// snapshot store.
type memCartRepo struct {
	mu      sync.Mutex
	carts   map[string]domain.Cart
	cleared []string
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: map[string]domain.Cart{}}
}

func copyCart(c domain.Cart) domain.Cart {
	entries := make([]domain.CartEntry, len(c.Entries))
	copy(entries, c.Entries)
	c.Entries = entries
	return c
}

func (r *memCartRepo) GetCart(_ context.Context, sessionID string) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[sessionID]
	if !ok {
		return &domain.Cart{SessionID: sessionID}, nil
	}
	copied := copyCart(cart)
	return &copied, nil
}

func (r *memCartRepo) SaveCart(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.SessionID] = copyCart(*cart)
	return nil
}

func (r *memCartRepo) ClearCart(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, sessionID)
	r.cleared = append(r.cleared, sessionID)
	return nil
}

// memOrderRepo reproduces the repository's transactional semantics: payment
// completion is serialized per repository, deducts stock through the ledger
// and compensates already-reserved items when a later one falls short.
type memOrderRepo struct {
	mu     sync.Mutex
	orders map[int]*domain.Order
	nextID int
	ledger *memProductRepo
}

func newMemOrderRepo(ledger *memProductRepo) *memOrderRepo {
	return &memOrderRepo{orders: map[int]*domain.Order{}, nextID: 1, ledger: ledger}
}

func copyOrder(o domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	if o.CustomerID != nil {
		id := *o.CustomerID
		o.CustomerID = &id
	}
	copyTime := func(t *time.Time) *time.Time {
		if t == nil {
			return nil
		}
		c := *t
		return &c
	}
	o.PaidAt = copyTime(o.PaidAt)
	o.ShippedAt = copyTime(o.ShippedAt)
	o.DeliveredAt = copyTime(o.DeliveredAt)
	return o
}

func (r *memOrderRepo) CreateOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order.ID = r.nextID
	r.nextID++
	order.CreatedAt = time.Now()
	for i := range order.Items {
		order.Items[i].ID = i + 1
		order.Items[i].OrderID = order.ID
	}
	stored := copyOrder(*order)
	r.orders[order.ID] = &stored
	return order, nil
}

func (r *memOrderRepo) GetOrderByID(_ context.Context, id int) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := copyOrder(*o)
	return &copied, nil
}

func (r *memOrderRepo) ListOrdersByCustomer(_ context.Context, customerID, _, _ int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	orders := []domain.Order{}
	for _, o := range r.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			orders = append(orders, copyOrder(*o))
		}
	}
	return orders, nil
}

func (r *memOrderRepo) CompletePayment(ctx context.Context, orderID int) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.PaymentStatus == domain.PaymentCompleted {
		return nil, domain.ErrAlreadyPaid
	}
	if o.Status == domain.StatusCancelled {
		return nil, &domain.InvalidTransitionError{
			OrderID: orderID,
			From:    o.Status,
			To:      domain.StatusProcessing,
			Reason:  "order is cancelled",
		}
	}

	reserved := []domain.OrderItem{}
	for _, item := range o.Items {
		if err := r.ledger.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			// Roll the partial deduction back, as the transaction would.
			for _, done := range reserved {
				_ = r.ledger.Release(ctx, done.ProductID, done.Quantity)
			}
			return nil, err
		}
		reserved = append(reserved, item)
	}

	o.PaymentStatus = domain.PaymentCompleted
	o.Paid = true
	o.Status = domain.StatusProcessing
	if o.PaidAt == nil {
		now := time.Now()
		o.PaidAt = &now
	}
	copied := copyOrder(*o)
	return &copied, nil
}

func (r *memOrderRepo) UpdateOrderStatus(_ context.Context, id int, from, to domain.OrderStatus) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return nil, &domain.InvalidTransitionError{
			OrderID: id,
			From:    from,
			To:      to,
			Reason:  "order status changed concurrently or order does not exist",
		}
	}
	o.Status = to
	now := time.Now()
	if to == domain.StatusShipped && o.ShippedAt == nil {
		o.ShippedAt = &now
	}
	if to == domain.StatusDelivered && o.DeliveredAt == nil {
		o.DeliveredAt = &now
	}
	copied := copyOrder(*o)
	return &copied, nil
}

func (r *memOrderRepo) UpdateItemQuantity(_ context.Context, orderID, itemID, quantity int) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.PaymentStatus == domain.PaymentCompleted {
		return nil, &domain.InvalidTransitionError{
			OrderID:       orderID,
			PaymentStatus: o.PaymentStatus,
			Reason:        "items cannot be changed after payment is completed",
		}
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items[i].SetQuantity(quantity)
			o.RecomputeTotal()
			copied := copyOrder(*o)
			return &copied, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

// memProducer records published events.
type memProducer struct {
	mu     sync.Mutex
	events []notification.OrderEvent
}

func (p *memProducer) PublishOrderEvent(event notification.OrderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *memProducer) Close() error { return nil }

func (p *memProducer) published(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, e := range p.events {
		if e.Type == eventType {
			count++
		}
	}
	return count
}
