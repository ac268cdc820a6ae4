package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/store"
)

// Engine owns cart mutation. Every operation re-validates against the catalog
// before committing and persists the whole cart through the active store
// adapter.
//
// Concurrency is last-write-wins at the cart level: each mutation loads the
// persisted cart, applies its change and writes the whole cart back. Two
// sessions of the same identity can lose one session's edit; this is an
// accepted limitation of the domain, not something to fix with distributed
// locking.
type Engine struct {
	catalog catalog.Catalog
	store   store.CartStore
	locks   *KeyedMutex
	sfg     singleflight.Group // Prevents load stampede on Snapshot
}

// New creates an engine over one storage domain. The lock set is shared with
// the merge coordinator for the authenticated domain so a sign-in merge runs
// to completion before further mutations for that identity.
func New(cat catalog.Catalog, st store.CartStore, locks *KeyedMutex) *Engine {
	return &Engine{catalog: cat, store: st, locks: locks}
}

// ClampNotice reports that AddLine accepted less than the requested quantity.
// It is informational, not an error: the resulting state is still valid.
type ClampNotice struct {
	ProductID int64  `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Requested int    `json:"requested"`
	Quantity  int    `json:"quantity"`
}

// AddLine adds quantity of a (product, variant) combination to the cart.
// The requested quantity alone must fit current inventory; accumulation onto
// an existing line is clamped instead of failing, because the user may have
// acted on slightly stale UI. Returns the persisted snapshot and a non-nil
// notice when clamping occurred.
func (e *Engine) AddLine(ctx context.Context, ref domain.OwnerRef, productID int64, variantID string, quantity int) (*domain.Cart, *ClampNotice, error) {
	if quantity < 1 {
		return nil, nil, fmt.Errorf("add line: %w", ErrInvalidQuantity)
	}

	avail, err := e.availability(ctx, productID, variantID)
	if err != nil {
		return nil, nil, err
	}
	if quantity > avail.Available {
		return nil, nil, &InsufficientInventoryError{
			ProductID: productID,
			VariantID: variantID,
			Requested: quantity,
			Available: avail.Available,
		}
	}

	unlock := e.locks.Lock(ref.Key())
	defer unlock()

	cart, err := e.loadOrEmpty(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	var notice *ClampNotice
	key := domain.LineKey{ProductID: productID, VariantID: variantID}
	if i := cart.FindLine(key); i >= 0 {
		requested := cart.Lines[i].Quantity + quantity
		next := requested
		if next > avail.Available {
			next = avail.Available
			notice = &ClampNotice{
				ProductID: productID,
				VariantID: variantID,
				Requested: requested,
				Quantity:  next,
			}
		}
		cart.Lines[i].Quantity = next
	} else {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ID:        uuid.NewString(),
			ProductID: productID,
			VariantID: variantID,
			Quantity:  quantity,
			Name:      avail.Name,
			UnitPrice: avail.UnitPrice,
			ImageURL:  avail.ImageURL,
			AddedAt:   time.Now(),
		})
	}

	if err := e.store.Save(ctx, ref, cart); err != nil {
		return nil, nil, fmt.Errorf("add line: %w", err)
	}
	return cart.Clone(), notice, nil
}

// RemoveLine removes the matching line if present. Removing an absent line is
// a no-op, not an error, and does not touch the store.
func (e *Engine) RemoveLine(ctx context.Context, ref domain.OwnerRef, productID int64, variantID string) (*domain.Cart, error) {
	unlock := e.locks.Lock(ref.Key())
	defer unlock()
	return e.removeLocked(ctx, ref, productID, variantID)
}

func (e *Engine) removeLocked(ctx context.Context, ref domain.OwnerRef, productID int64, variantID string) (*domain.Cart, error) {
	cart, err := e.loadOrEmpty(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !cart.RemoveLine(domain.LineKey{ProductID: productID, VariantID: variantID}) {
		return cart.Clone(), nil
	}

	if err := e.store.Save(ctx, ref, cart); err != nil {
		return nil, fmt.Errorf("remove line: %w", err)
	}
	return cart.Clone(), nil
}

// SetQuantity sets a line to an exact quantity. A quantity <= 0 behaves as
// RemoveLine. Unlike AddLine this never clamps: the user explicitly typed
// this number, so exceeding inventory surfaces InsufficientInventoryError
// with the available count. A line absent from the cart is created.
func (e *Engine) SetQuantity(ctx context.Context, ref domain.OwnerRef, productID int64, variantID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return e.RemoveLine(ctx, ref, productID, variantID)
	}

	avail, err := e.availability(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	if quantity > avail.Available {
		return nil, &InsufficientInventoryError{
			ProductID: productID,
			VariantID: variantID,
			Requested: quantity,
			Available: avail.Available,
		}
	}

	unlock := e.locks.Lock(ref.Key())
	defer unlock()

	cart, err := e.loadOrEmpty(ctx, ref)
	if err != nil {
		return nil, err
	}

	key := domain.LineKey{ProductID: productID, VariantID: variantID}
	if i := cart.FindLine(key); i >= 0 {
		cart.Lines[i].Quantity = quantity
	} else {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ID:        uuid.NewString(),
			ProductID: productID,
			VariantID: variantID,
			Quantity:  quantity,
			Name:      avail.Name,
			UnitPrice: avail.UnitPrice,
			ImageURL:  avail.ImageURL,
			AddedAt:   time.Now(),
		})
	}

	if err := e.store.Save(ctx, ref, cart); err != nil {
		return nil, fmt.Errorf("set quantity: %w", err)
	}
	return cart.Clone(), nil
}

// Clear empties the cart and persists the empty state.
func (e *Engine) Clear(ctx context.Context, ref domain.OwnerRef) error {
	unlock := e.locks.Lock(ref.Key())
	defer unlock()

	if err := e.store.Clear(ctx, ref); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Snapshot returns an immutable copy of the current cart for display or
// pricing. It never re-validates by itself; that happens on mutation and on
// ValidateForCheckout. Concurrent snapshots of the same identity share one
// store load.
func (e *Engine) Snapshot(ctx context.Context, ref domain.OwnerRef) (*domain.Cart, error) {
	v, err, _ := e.sfg.Do(ref.Key(), func() (interface{}, error) {
		return e.loadOrEmpty(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart).Clone(), nil
}

func (e *Engine) loadOrEmpty(ctx context.Context, ref domain.OwnerRef) (*domain.Cart, error) {
	cart, err := e.store.Load(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrCartNotFound) {
			return domain.NewCart(ref), nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return cart, nil
}

// availability resolves catalog state for one combination, mapping absent and
// inactive products onto ErrNotFound. Any other catalog failure propagates.
func (e *Engine) availability(ctx context.Context, productID int64, variantID string) (catalog.Availability, error) {
	avail, err := e.catalog.GetAvailability(ctx, productID, variantID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Availability{}, notFound(productID, variantID)
		}
		return catalog.Availability{}, fmt.Errorf("catalog lookup: %w", err)
	}
	if !avail.Active {
		return catalog.Availability{}, notFound(productID, variantID)
	}
	return avail, nil
}

func notFound(productID int64, variantID string) error {
	if variantID != "" {
		return fmt.Errorf("product %d variant %s: %w", productID, variantID, ErrNotFound)
	}
	return fmt.Errorf("product %d: %w", productID, ErrNotFound)
}
