package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/pricing"
)

// LineStatus classifies one line's relationship to current inventory. It is
// recomputed on every ValidateForCheckout call and never persisted.
type LineStatus string

const (
	// LineValid: the stored quantity is fully satisfiable.
	LineValid LineStatus = "valid"
	// LineReduced: inventory covers part of the stored quantity.
	LineReduced LineStatus = "reduced"
	// LineDropped: product deactivated, variant deleted, or zero inventory.
	LineDropped LineStatus = "dropped"
)

// ValidatedLine is one line's classification with the fresh catalog price.
// Quantity is the satisfiable quantity (zero for dropped lines).
type ValidatedLine struct {
	Line      domain.CartLine `json:"line"`
	Status    LineStatus      `json:"status"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CheckoutValidation is the partitioned result of a full re-validation pass.
// It is the mandatory gate before pricing; applying it to the stored cart is
// a separate, caller-driven step (ApplyValidation).
type CheckoutValidation struct {
	Lines []ValidatedLine `json:"lines"`
}

// Clean reports whether every line is fully satisfiable as stored.
func (v *CheckoutValidation) Clean() bool {
	for _, l := range v.Lines {
		if l.Status != LineValid {
			return false
		}
	}
	return true
}

// Reduced returns the lines whose quantity must shrink.
func (v *CheckoutValidation) Reduced() []ValidatedLine {
	return v.filter(LineReduced)
}

// Dropped returns the lines that must be removed entirely.
func (v *CheckoutValidation) Dropped() []ValidatedLine {
	return v.filter(LineDropped)
}

func (v *CheckoutValidation) filter(status LineStatus) []ValidatedLine {
	var out []ValidatedLine
	for _, l := range v.Lines {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}

// PricedLines converts the satisfiable portion of the validation into pricing
// input, using the fresh catalog prices rather than the display snapshots.
func (v *CheckoutValidation) PricedLines() []pricing.Line {
	out := make([]pricing.Line, 0, len(v.Lines))
	for _, l := range v.Lines {
		if l.Quantity == 0 {
			continue
		}
		out = append(out, pricing.Line{
			ProductID: l.Line.ProductID,
			VariantID: l.Line.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return out
}

// ValidateForCheckout re-validates every line against the catalog and
// partitions the result. It never mutates the stored cart; the caller decides
// whether to apply reductions. Individual line problems downgrade to
// Reduced/Dropped; only an unreachable catalog returns an error.
func (e *Engine) ValidateForCheckout(ctx context.Context, ref domain.OwnerRef) (*CheckoutValidation, error) {
	cart, err := e.loadOrEmpty(ctx, ref)
	if err != nil {
		return nil, err
	}

	result := &CheckoutValidation{Lines: make([]ValidatedLine, 0, len(cart.Lines))}
	for _, line := range cart.Lines {
		avail, err := e.catalog.GetAvailability(ctx, line.ProductID, line.VariantID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				result.Lines = append(result.Lines, ValidatedLine{Line: line, Status: LineDropped})
				continue
			}
			return nil, fmt.Errorf("catalog lookup: %w", err)
		}

		switch {
		case !avail.Active || avail.Available == 0:
			result.Lines = append(result.Lines, ValidatedLine{Line: line, Status: LineDropped})
		case line.Quantity <= avail.Available:
			result.Lines = append(result.Lines, ValidatedLine{
				Line:      line,
				Status:    LineValid,
				Quantity:  line.Quantity,
				UnitPrice: avail.UnitPrice,
			})
		default:
			result.Lines = append(result.Lines, ValidatedLine{
				Line:      line,
				Status:    LineReduced,
				Quantity:  avail.Available,
				UnitPrice: avail.UnitPrice,
			})
		}
	}
	return result, nil
}

// ApplyValidation rewrites the stored cart per a validation result: reduced
// lines shrink to their satisfiable quantity, dropped lines disappear. The
// caller invokes this explicitly after showing the user what changed.
func (e *Engine) ApplyValidation(ctx context.Context, ref domain.OwnerRef, v *CheckoutValidation) (*domain.Cart, error) {
	unlock := e.locks.Lock(ref.Key())
	defer unlock()

	cart, err := e.loadOrEmpty(ctx, ref)
	if err != nil {
		return nil, err
	}

	for _, vl := range v.Lines {
		key := vl.Line.Key()
		switch vl.Status {
		case LineReduced:
			if i := cart.FindLine(key); i >= 0 {
				cart.Lines[i].Quantity = vl.Quantity
			}
		case LineDropped:
			cart.RemoveLine(key)
		}
	}

	if err := e.store.Save(ctx, ref, cart); err != nil {
		return nil, fmt.Errorf("apply validation: %w", err)
	}
	return cart.Clone(), nil
}
