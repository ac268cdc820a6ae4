package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineKey identifies a product/variant combination within a cart. An empty
// VariantID means the product has no variants and uses its top-level inventory.
type LineKey struct {
	ProductID int64  `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
}

// CartLine is one row of cart state. Name, UnitPrice and ImageURL are display
// snapshots captured at add time; financial calculation always re-reads the
// catalog instead of trusting them.
type CartLine struct {
	ID        string          `json:"id" bson:"id"`
	ProductID int64           `json:"product_id" bson:"product_id"`
	VariantID string          `json:"variant_id,omitempty" bson:"variant_id,omitempty"`
	Quantity  int             `json:"quantity" bson:"quantity"`
	Name      string          `json:"name" bson:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" bson:"-"`
	ImageURL  string          `json:"image_url,omitempty" bson:"image_url,omitempty"`
	AddedAt   time.Time       `json:"added_at" bson:"added_at"`
}

// Key returns the line's uniqueness key.
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, VariantID: l.VariantID}
}

// Cart is an ordered collection of lines owned by exactly one identity
// context. Within a cart the (product, variant) pair is unique.
type Cart struct {
	Owner     OwnerRef   `json:"owner" bson:"owner"`
	Lines     []CartLine `json:"lines" bson:"lines"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// NewCart returns an empty cart owned by ref.
func NewCart(ref OwnerRef) *Cart {
	now := time.Now()
	return &Cart{Owner: ref, CreatedAt: now, UpdatedAt: now}
}

// FindLine returns the index of the line with the given key, or -1.
func (c *Cart) FindLine(key LineKey) int {
	for i, l := range c.Lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}

// RemoveLine deletes the line with the given key, preserving order.
// It reports whether a line was removed.
func (c *Cart) RemoveLine(key LineKey) bool {
	i := c.FindLine(key)
	if i < 0 {
		return false
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return true
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clone returns a deep copy safe to hand out as a snapshot.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return &out
}
