package usecase

import (
	"context"
	"strings"
	"testing"

	"storefront_service/internal/domain"
	"storefront_service/internal/notification"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCheckoutInfo() CheckoutInfo {
	return CheckoutInfo{
		FullName:     "Asha Rao",
		Email:        "asha@example.com",
		Phone:        "9876543210",
		Pincode:      "411001",
		AddressLine1: "Flat 4",
		City:         "Pune",
		State:        "MH",
	}
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	products := newMemProductRepo()
	carts := newMemCartRepo()
	orders := newMemOrderRepo(products)
	producer := &memProducer{}
	uc := NewCheckoutUseCase(carts, products, orders, producer, testLogger())

	p := products.put(domain.Product{Name: "Kettle", Price: decimal.NewFromInt(100), Stock: 2})
	require.NoError(t, carts.SaveCart(context.Background(), &domain.Cart{
		SessionID: "s1",
		Entries:   []domain.CartEntry{{ProductID: p.ID, Name: "Kettle", UnitPrice: decimal.NewFromInt(100), Quantity: 2}},
	}))

	order, err := uc.Checkout(context.Background(), "s1", validCheckoutInfo())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
	assert.False(t, order.Paid)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(200)))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.True(t, order.Items[0].Subtotal.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, "Flat 4\nPune, MH - 411001", order.Address)

	// Checkout reserves nothing and keeps the cart for payment retries.
	live, err := products.GetProductByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, live.Stock)
	cart, err := carts.GetCart(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, cart.IsEmpty())

	assert.Equal(t, 1, producer.published(notification.EventOrderCreated))
}

func TestCheckoutEmptyCart(t *testing.T) {
	products := newMemProductRepo()
	uc := NewCheckoutUseCase(newMemCartRepo(), products, newMemOrderRepo(products), nil, testLogger())

	_, err := uc.Checkout(context.Background(), "s1", validCheckoutInfo())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCheckoutAllOrNothingOnShortStock(t *testing.T) {
	products := newMemProductRepo()
	carts := newMemCartRepo()
	orders := newMemOrderRepo(products)
	uc := NewCheckoutUseCase(carts, products, orders, nil, testLogger())

	a := products.put(domain.Product{Name: "A", Price: decimal.NewFromInt(10), Stock: 5})
	b := products.put(domain.Product{Name: "B", Price: decimal.NewFromInt(20), Stock: 1})
	require.NoError(t, carts.SaveCart(context.Background(), &domain.Cart{
		SessionID: "s1",
		Entries: []domain.CartEntry{
			{ProductID: a.ID, Name: "A", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
			{ProductID: b.ID, Name: "B", UnitPrice: decimal.NewFromInt(20), Quantity: 3},
		},
	}))

	_, err := uc.Checkout(context.Background(), "s1", validCheckoutInfo())
	var exceeded *domain.StockExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, b.ID, exceeded.ProductID)
	assert.Equal(t, 3, exceeded.Requested)
	assert.Equal(t, 1, exceeded.Available)

	// No order was created and no stock moved.
	_, err = orders.GetOrderByID(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	liveA, _ := products.GetProductByID(context.Background(), a.ID)
	assert.Equal(t, 5, liveA.Stock)
}

func TestCheckoutSkipsVanishedProducts(t *testing.T) {
	products := newMemProductRepo()
	carts := newMemCartRepo()
	orders := newMemOrderRepo(products)
	uc := NewCheckoutUseCase(carts, products, orders, nil, testLogger())

	p := products.put(domain.Product{Name: "Alive", Price: decimal.NewFromInt(40), Stock: 4})
	require.NoError(t, carts.SaveCart(context.Background(), &domain.Cart{
		SessionID: "s1",
		Entries: []domain.CartEntry{
			{ProductID: p.ID, Name: "Alive", UnitPrice: decimal.NewFromInt(40), Quantity: 1},
			{ProductID: 777, Name: "Gone", UnitPrice: decimal.NewFromInt(99), Quantity: 2},
		},
	}))

	order, err := uc.Checkout(context.Background(), "s1", validCheckoutInfo())
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, p.ID, order.Items[0].ProductID)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(40)))
}

func TestCheckoutValidatesInfo(t *testing.T) {
	products := newMemProductRepo()
	carts := newMemCartRepo()
	uc := NewCheckoutUseCase(carts, products, newMemOrderRepo(products), nil, testLogger())

	p := products.put(domain.Product{Name: "X", Price: decimal.NewFromInt(10), Stock: 1})
	require.NoError(t, carts.SaveCart(context.Background(), &domain.Cart{
		SessionID: "s1",
		Entries:   []domain.CartEntry{{ProductID: p.ID, Name: "X", UnitPrice: decimal.NewFromInt(10), Quantity: 1}},
	}))

	info := validCheckoutInfo()
	info.Phone = "  "
	info.Pincode = ""
	_, err := uc.Checkout(context.Background(), "s1", info)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "phone"))
	assert.True(t, strings.Contains(err.Error(), "pincode"))
}

func TestCheckoutFallsBackToCatalogPrice(t *testing.T) {
	products := newMemProductRepo()
	carts := newMemCartRepo()
	uc := NewCheckoutUseCase(carts, products, newMemOrderRepo(products), nil, testLogger())

	p := products.put(domain.Product{Name: "Y", Price: decimal.NewFromInt(75), Stock: 2})
	require.NoError(t, carts.SaveCart(context.Background(), &domain.Cart{
		SessionID: "s1",
		Entries:   []domain.CartEntry{{ProductID: p.ID, Name: "Y", Quantity: 2}},
	}))

	order, err := uc.Checkout(context.Background(), "s1", validCheckoutInfo())
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Price.Equal(decimal.NewFromInt(75)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(150)))
}
