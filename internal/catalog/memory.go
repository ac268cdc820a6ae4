package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. AvailableAt, when set, hides the product until
// the scheduled time passes.
type Product struct {
	ID          int64
	Name        string
	Description string
	BasePrice   decimal.Decimal
	ImageURL    string
	Active      bool
	AvailableAt *time.Time
	Stock       int // used only when the product has no variants
}

// Variant is a size/color combination with its own inventory and price
// adjustment (signed, added to the product's base price).
type Variant struct {
	ProductID  int64
	SizeID     string
	ColorID    string
	Adjustment decimal.Decimal
	Stock      int
}

// VariantKey builds the variant identifier used on cart lines.
func VariantKey(sizeID, colorID string) string {
	return sizeID + "/" + colorID
}

// MemoryCatalog implements Catalog with in-memory storage.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[int64]*Product
	variants map[int64]map[string]*Variant // productID -> variant key
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products: make(map[int64]*Product),
		variants: make(map[int64]map[string]*Variant),
	}
}

// SetProduct inserts or replaces a product.
func (m *MemoryCatalog) SetProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.products[p.ID] = &cp
}

// SetVariant inserts or replaces a variant of an existing product.
func (m *MemoryCatalog) SetVariant(v Variant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.variants[v.ProductID] == nil {
		m.variants[v.ProductID] = make(map[string]*Variant)
	}
	cv := v
	m.variants[v.ProductID][VariantKey(v.SizeID, v.ColorID)] = &cv
}

// SetStock adjusts inventory for a product or, when variantID is non-empty,
// for that exact variant.
func (m *MemoryCatalog) SetStock(productID int64, variantID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return ErrNotFound
	}
	if variantID == "" {
		p.Stock = quantity
		return nil
	}
	v, ok := m.variants[productID][variantID]
	if !ok {
		return ErrNotFound
	}
	v.Stock = quantity
	return nil
}

// GetAvailability implements Catalog.
func (m *MemoryCatalog) GetAvailability(_ context.Context, productID int64, variantID string) (Availability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[productID]
	if !ok {
		return Availability{}, ErrNotFound
	}

	active := p.Active
	if p.AvailableAt != nil && time.Now().Before(*p.AvailableAt) {
		active = false
	}

	if variantID == "" {
		return Availability{
			Active:    active,
			UnitPrice: p.BasePrice,
			Available: p.Stock,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
		}, nil
	}

	v, ok := m.variants[productID][variantID]
	if !ok {
		return Availability{}, ErrNotFound
	}
	return Availability{
		Active:    active,
		UnitPrice: p.BasePrice.Add(v.Adjustment),
		Available: v.Stock,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
	}, nil
}
