package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGetAvailability_ProductNotFound(t *testing.T) {
	cat := NewMemoryCatalog()

	_, err := cat.GetAvailability(context.Background(), 1, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAvailability_VariantNotFound(t *testing.T) {
	cat := NewMemoryCatalog()
	cat.SetProduct(Product{ID: 1, Name: "Tee", BasePrice: price("20.00"), Active: true, Stock: 5})

	_, err := cat.GetAvailability(context.Background(), 1, "S/Red")
	assert.ErrorIs(t, err, ErrNotFound)
}

// A product without variants answers with its top-level inventory count.
func TestGetAvailability_NoVariants(t *testing.T) {
	cat := NewMemoryCatalog()
	cat.SetProduct(Product{ID: 1, Name: "Tee", BasePrice: price("20.00"), ImageURL: "/tee.jpg", Active: true, Stock: 3})

	avail, err := cat.GetAvailability(context.Background(), 1, "")
	require.NoError(t, err)
	assert.True(t, avail.Active)
	assert.Equal(t, 3, avail.Available)
	assert.True(t, avail.UnitPrice.Equal(price("20.00")))
	assert.Equal(t, "Tee", avail.Name)
	assert.Equal(t, "/tee.jpg", avail.ImageURL)
}

// Variant unit price is base price plus the signed adjustment; inventory is
// the variant's own count.
func TestGetAvailability_VariantAdjustment(t *testing.T) {
	cat := NewMemoryCatalog()
	cat.SetProduct(Product{ID: 1, Name: "Tee", BasePrice: price("20.00"), Active: true, Stock: 99})
	cat.SetVariant(Variant{ProductID: 1, SizeID: "XL", ColorID: "Red", Adjustment: price("2.50"), Stock: 4})
	cat.SetVariant(Variant{ProductID: 1, SizeID: "S", ColorID: "Red", Adjustment: price("-1.00"), Stock: 7})

	avail, err := cat.GetAvailability(context.Background(), 1, VariantKey("XL", "Red"))
	require.NoError(t, err)
	assert.True(t, avail.UnitPrice.Equal(price("22.50")))
	assert.Equal(t, 4, avail.Available)

	avail, err = cat.GetAvailability(context.Background(), 1, VariantKey("S", "Red"))
	require.NoError(t, err)
	assert.True(t, avail.UnitPrice.Equal(price("19.00")))
	assert.Equal(t, 7, avail.Available)
}

func TestGetAvailability_InactiveProduct(t *testing.T) {
	cat := NewMemoryCatalog()
	cat.SetProduct(Product{ID: 1, BasePrice: price("20.00"), Active: false, Stock: 3})

	avail, err := cat.GetAvailability(context.Background(), 1, "")
	require.NoError(t, err)
	assert.False(t, avail.Active)
}

// A scheduled product stays inactive until its availability time passes.
func TestGetAvailability_ScheduledProduct(t *testing.T) {
	cat := NewMemoryCatalog()

	future := time.Now().Add(time.Hour)
	cat.SetProduct(Product{ID: 1, BasePrice: price("20.00"), Active: true, AvailableAt: &future, Stock: 3})

	avail, err := cat.GetAvailability(context.Background(), 1, "")
	require.NoError(t, err)
	assert.False(t, avail.Active)

	past := time.Now().Add(-time.Hour)
	cat.SetProduct(Product{ID: 1, BasePrice: price("20.00"), Active: true, AvailableAt: &past, Stock: 3})

	avail, err = cat.GetAvailability(context.Background(), 1, "")
	require.NoError(t, err)
	assert.True(t, avail.Active)
}

func TestSetStock(t *testing.T) {
	cat := NewMemoryCatalog()
	cat.SetProduct(Product{ID: 1, BasePrice: price("20.00"), Active: true, Stock: 3})
	cat.SetVariant(Variant{ProductID: 1, SizeID: "S", ColorID: "Red", Stock: 2})

	require.NoError(t, cat.SetStock(1, "", 10))
	avail, err := cat.GetAvailability(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, 10, avail.Available)

	require.NoError(t, cat.SetStock(1, VariantKey("S", "Red"), 1))
	avail, err = cat.GetAvailability(context.Background(), 1, VariantKey("S", "Red"))
	require.NoError(t, err)
	assert.Equal(t, 1, avail.Available)

	assert.ErrorIs(t, cat.SetStock(99, "", 1), ErrNotFound)
}
