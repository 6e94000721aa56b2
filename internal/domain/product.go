package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsAvailable bool            `json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, id int) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListProducts(ctx context.Context, limit, offset int, availableOnly bool) ([]Product, error)
	UpdateProduct(ctx context.Context, id int, updates map[string]interface{}) (*Product, error)
}

// InventoryLedger owns the per-product stock counters. Reserve fails with
// *InsufficientStockError when the requested quantity exceeds current stock;
// on success it decrements the counter and clears availability at zero.
// Release increments the counter unconditionally and restores availability.
// Both are atomic with respect to concurrent calls on the same product, so
// a read-check-decrement never races (no overselling, stock never negative).
type InventoryLedger interface {
	Reserve(ctx context.Context, productID, quantity int) error
	Release(ctx context.Context, productID, quantity int) error
}
