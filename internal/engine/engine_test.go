package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/store"
)

type mockCatalog struct {
	m     sync.RWMutex
	avail map[string]catalog.Availability
	err   error
}

func availKey(productID int64, variantID string) string {
	return fmt.Sprintf("%d/%s", productID, variantID)
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{avail: make(map[string]catalog.Availability)}
}

func (m *mockCatalog) set(productID int64, variantID string, a catalog.Availability) {
	m.m.Lock()
	defer m.m.Unlock()
	m.avail[availKey(productID, variantID)] = a
}

func (m *mockCatalog) GetAvailability(_ context.Context, productID int64, variantID string) (catalog.Availability, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return catalog.Availability{}, m.err
	}
	a, ok := m.avail[availKey(productID, variantID)]
	if !ok {
		return catalog.Availability{}, catalog.ErrNotFound
	}
	return a, nil
}

type failingStore struct {
	store.CartStore
	failSave bool
}

func (f *failingStore) Save(ctx context.Context, ref domain.OwnerRef, cart *domain.Cart) error {
	if f.failSave {
		return fmt.Errorf("save cart: %w", store.ErrPersistence)
	}
	return f.CartStore.Save(ctx, ref, cart)
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setupEngine(t *testing.T) (*Engine, *mockCatalog) {
	t.Helper()
	cat := newMockCatalog()
	return New(cat, store.NewLocalStore(), NewKeyedMutex()), cat
}

func TestAddLine_NewLine(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("20.00"), Available: 3, Name: "Tee"})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	cart, clamped, err := eng.AddLine(ctx, ref, 1, "", 2)
	require.NoError(t, err)
	assert.Nil(t, clamped)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, "Tee", cart.Lines[0].Name)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(price("20.00")))
	assert.NotEmpty(t, cart.Lines[0].ID)
}

// Repeated adds for the same (product, variant) pair must end with exactly
// one line, quantity = sum of requests clamped to availability.
func TestAddLine_UniquenessInvariant(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "S/Red", catalog.Availability{Active: true, UnitPrice: price("22.50"), Available: 3})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	var lastClamp *ClampNotice
	for i := 0; i < 5; i++ {
		cart, clamped, err := eng.AddLine(ctx, ref, 1, "S/Red", 1)
		require.NoError(t, err)
		require.Len(t, cart.Lines, 1)
		if clamped != nil {
			lastClamp = clamped
		}
	}

	cart, err := eng.Snapshot(ctx, ref)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	require.NotNil(t, lastClamp, "accumulation past availability should be reported")
	assert.Equal(t, 3, lastClamp.Quantity)
}

func TestAddLine_ClampOnAccumulate(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("10.00"), Available: 5})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	_, _, err := eng.AddLine(ctx, ref, 1, "", 4)
	require.NoError(t, err)

	// 4 + 3 exceeds 5: accepted but clamped, not an error.
	cart, clamped, err := eng.AddLine(ctx, ref, 1, "", 3)
	require.NoError(t, err)
	require.NotNil(t, clamped)
	assert.Equal(t, 7, clamped.Requested)
	assert.Equal(t, 5, clamped.Quantity)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
}

func TestAddLine_InsufficientInventory(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("10.00"), Available: 2})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	// The requested quantity alone exceeds availability: hard error.
	_, _, err := eng.AddLine(ctx, ref, 1, "", 3)
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	var inv *InsufficientInventoryError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 2, inv.Available)

	cart, err := eng.Snapshot(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestAddLine_NotFound(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(2, "", catalog.Availability{Active: false, UnitPrice: price("10.00"), Available: 5})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	_, _, err := eng.AddLine(ctx, ref, 99, "", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	// Inactive products are indistinguishable from absent ones.
	_, _, err = eng.AddLine(ctx, ref, 2, "", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddLine_InvalidQuantity(t *testing.T) {
	eng, _ := setupEngine(t)

	_, _, err := eng.AddLine(context.Background(), domain.AnonymousRef("d"), 1, "", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRemoveLine_AbsentIsNoOp(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("10.00"), Available: 5})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	_, _, err := eng.AddLine(ctx, ref, 1, "", 2)
	require.NoError(t, err)

	before, err := eng.Snapshot(ctx, ref)
	require.NoError(t, err)

	_, err = eng.RemoveLine(ctx, ref, 42, "")
	require.NoError(t, err)

	after, err := eng.Snapshot(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRemoveLine_Removes(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("10.00"), Available: 5})
	cat.set(2, "", catalog.Availability{Active: true, UnitPrice: price("5.00"), Available: 5})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	_, _, err := eng.AddLine(ctx, ref, 1, "", 1)
	require.NoError(t, err)
	_, _, err = eng.AddLine(ctx, ref, 2, "", 1)
	require.NoError(t, err)

	cart, err := eng.RemoveLine(ctx, ref, 1, "")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int64(2), cart.Lines[0].ProductID)
}

// SetQuantity with quantity <= 0 behaves exactly like RemoveLine.
func TestSetQuantity_FloorIsRemoval(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("10.00"), Available: 5})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	_, _, err := eng.AddLine(ctx, ref, 1, "", 2)
	require.NoError(t, err)

	cart, err := eng.SetQuantity(ctx, ref, 1, "", 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	// And on an absent line it stays a no-op.
	cart, err = eng.SetQuantity(ctx, ref, 1, "", -3)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestSetQuantity_NoSilentClamp(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("10.00"), Available: 3})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	_, _, err := eng.AddLine(ctx, ref, 1, "", 2)
	require.NoError(t, err)

	// The user typed this number: surface the error, do not clamp.
	_, err = eng.SetQuantity(ctx, ref, 1, "", 4)
	var inv *InsufficientInventoryError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 4, inv.Requested)
	assert.Equal(t, 3, inv.Available)

	cart, err := eng.Snapshot(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestSetQuantity_Updates(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("10.00"), Available: 5})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	_, _, err := eng.AddLine(ctx, ref, 1, "", 2)
	require.NoError(t, err)

	cart, err := eng.SetQuantity(ctx, ref, 1, "", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
}

func TestClear(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("10.00"), Available: 5})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	_, _, err := eng.AddLine(ctx, ref, 1, "", 2)
	require.NoError(t, err)

	require.NoError(t, eng.Clear(ctx, ref))

	cart, err := eng.Snapshot(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestSnapshot_IsACopy(t *testing.T) {
	eng, cat := setupEngine(t)
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("10.00"), Available: 5})

	ctx := context.Background()
	ref := domain.AnonymousRef("device-1")

	_, _, err := eng.AddLine(ctx, ref, 1, "", 2)
	require.NoError(t, err)

	snap, err := eng.Snapshot(ctx, ref)
	require.NoError(t, err)
	snap.Lines[0].Quantity = 99

	again, err := eng.Snapshot(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Lines[0].Quantity)
}

func TestAddLine_PersistenceFailurePropagates(t *testing.T) {
	cat := newMockCatalog()
	cat.set(1, "", catalog.Availability{Active: true, UnitPrice: price("10.00"), Available: 5})
	eng := New(cat, &failingStore{CartStore: store.NewLocalStore(), failSave: true}, NewKeyedMutex())

	_, _, err := eng.AddLine(context.Background(), domain.AnonymousRef("d"), 1, "", 1)
	assert.ErrorIs(t, err, store.ErrPersistence)
}

func TestAddLine_CatalogUnreachable(t *testing.T) {
	cat := newMockCatalog()
	cat.err = errors.New("connection refused")
	eng := New(cat, store.NewLocalStore(), NewKeyedMutex())

	_, _, err := eng.AddLine(context.Background(), domain.AnonymousRef("d"), 1, "", 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
