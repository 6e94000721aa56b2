package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CartEntry is a snapshot line in a session cart. UnitPrice is captured when
// the product is first added and is not re-synced with the catalog afterwards.
type CartEntry struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (e CartEntry) Valid() bool {
	return e.ProductID > 0 && e.Quantity >= 1 && !e.UnitPrice.IsNegative()
}

func (e CartEntry) Subtotal() decimal.Decimal {
	return e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Cart lives only in session-scoped storage, keyed by session ID. It is
// single-owner: one session, no cross-request sharing.
type Cart struct {
	SessionID string      `json:"session_id"`
	Entries   []CartEntry `json:"entries"`
}

func (c *Cart) Entry(productID int) *CartEntry {
	for i := range c.Entries {
		if c.Entries[i].ProductID == productID {
			return &c.Entries[i]
		}
	}
	return nil
}

func (c *Cart) Add(entry CartEntry) {
	if existing := c.Entry(entry.ProductID); existing != nil {
		existing.Quantity = entry.Quantity
		return
	}
	c.Entries = append(c.Entries, entry)
}

func (c *Cart) Remove(productID int) bool {
	for i := range c.Entries {
		if c.Entries[i].ProductID == productID {
			c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cart) IsEmpty() bool {
	return len(c.Entries) == 0
}

// Total sums price times quantity over all entries. Malformed entries are
// skipped, never counted.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range c.Entries {
		if !entry.Valid() {
			continue
		}
		total = total.Add(entry.Subtotal())
	}
	return total
}

// CartRepository persists whole-cart snapshots in session-scoped storage.
// GetCart returns an empty cart (not an error) when the session has none.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*Cart, error)
	SaveCart(ctx context.Context, cart *Cart) error
	ClearCart(ctx context.Context, sessionID string) error
}
