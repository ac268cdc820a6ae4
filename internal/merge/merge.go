package merge

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/engine"
	"github.com/fjod/go_storefront/internal/store"
)

// ClampedLine reports one merged line that could not keep its full combined
// quantity. Quantity is what survived; zero means the item vanished from the
// catalog entirely.
type ClampedLine struct {
	ProductID int64  `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Requested int    `json:"requested"`
	Quantity  int    `json:"quantity"`
}

// Coordinator reconciles a device-local cart into the authenticated cart
// exactly once per sign-in transition. Exactly-once is guaranteed by the last
// step: the anonymous store is physically emptied, so a re-run merges an
// empty cart and is a safe no-op.
type Coordinator struct {
	catalog catalog.Catalog
	anon    store.CartStore
	auth    store.CartStore
	locks   *engine.KeyedMutex
}

// NewCoordinator wires the coordinator over both storage domains. locks must
// be the same set the authenticated engine uses, so the merge runs to
// completion before any engine call for the new identity is serviced.
func NewCoordinator(cat catalog.Catalog, anon, auth store.CartStore, locks *engine.KeyedMutex) *Coordinator {
	return &Coordinator{catalog: cat, anon: anon, auth: auth, locks: locks}
}

// OnSignIn merges the anonymous cart into the authenticated cart. Overlapping
// lines add their quantities; everything is clamped to current inventory
// rather than failing, since an erroring merge would strand the user's items
// invisibly. Clamped lines are reported back for an informational notice.
//
// If persisting the merged cart fails, the anonymous store is NOT cleared, so
// a retry on the next sign-in reattempts the same merge. Callers must retry
// only on a confirmed persistence failure.
func (c *Coordinator) OnSignIn(ctx context.Context, anonRef, authRef domain.OwnerRef) (*domain.Cart, []ClampedLine, error) {
	unlock := c.locks.Lock(authRef.Key())
	defer unlock()

	anonCart, err := c.load(ctx, c.anon, anonRef)
	if err != nil {
		return nil, nil, fmt.Errorf("merge: load anonymous cart: %w", err)
	}

	authCart, err := c.load(ctx, c.auth, authRef)
	if err != nil {
		return nil, nil, fmt.Errorf("merge: load authenticated cart: %w", err)
	}

	// Already merged (or nothing to merge): nothing to persist or retire.
	if anonCart.IsEmpty() {
		return authCart.Clone(), nil, nil
	}

	var clamped []ClampedLine
	for _, line := range anonCart.Lines {
		avail, err := c.catalog.GetAvailability(ctx, line.ProductID, line.VariantID)
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			avail = catalog.Availability{} // gone: clamp to zero below
		case err != nil:
			return nil, nil, fmt.Errorf("merge: catalog lookup: %w", err)
		case !avail.Active:
			avail.Available = 0
		}

		key := line.Key()
		if i := authCart.FindLine(key); i >= 0 {
			requested := authCart.Lines[i].Quantity + line.Quantity
			next := requested
			if next > avail.Available {
				next = avail.Available
				clamped = append(clamped, ClampedLine{
					ProductID: line.ProductID,
					VariantID: line.VariantID,
					Requested: requested,
					Quantity:  next,
				})
			}
			if next == 0 {
				authCart.RemoveLine(key)
			} else {
				authCart.Lines[i].Quantity = next
			}
			continue
		}

		next := line.Quantity
		if next > avail.Available {
			next = avail.Available
			clamped = append(clamped, ClampedLine{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Requested: line.Quantity,
				Quantity:  next,
			})
		}
		if next > 0 {
			inserted := line
			inserted.Quantity = next
			authCart.Lines = append(authCart.Lines, inserted)
		}
	}

	if err := c.auth.Save(ctx, authRef, authCart); err != nil {
		// Anonymous cart stays put so the next sign-in retries the merge.
		return nil, nil, fmt.Errorf("merge: persist merged cart: %w", err)
	}

	if err := c.anon.Clear(ctx, anonRef); err != nil {
		// The merged cart is durable; failing to retire the anonymous cart
		// means a retry will re-add the same quantities and re-clamp.
		log.Printf("merge: retire anonymous cart %s: %v", anonRef.Key(), err)
		return nil, nil, fmt.Errorf("merge: retire anonymous cart: %w", err)
	}

	return authCart.Clone(), clamped, nil
}

func (c *Coordinator) load(ctx context.Context, st store.CartStore, ref domain.OwnerRef) (*domain.Cart, error) {
	cart, err := st.Load(ctx, ref)
	if err != nil {
		if errors.Is(err, store.ErrCartNotFound) {
			return domain.NewCart(ref), nil
		}
		return nil, err
	}
	return cart, nil
}
