package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the product or variant is absent from the catalog
	// or not currently purchasable (inactive, or scheduled in the future).
	ErrNotFound = errors.New("product or variant not found")

	// ErrInsufficientInventory matches any InsufficientInventoryError via
	// errors.Is.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrInvalidQuantity is returned for non-positive quantities on AddLine.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrMergeConflict is reserved for merges that cannot be resolved by
	// clamping. Currently unused: clamping always succeeds.
	ErrMergeConflict = errors.New("merge conflict")
)

// InsufficientInventoryError carries the available count so callers can
// render a precise "only N available" message.
type InsufficientInventoryError struct {
	ProductID int64
	VariantID string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	if e.VariantID != "" {
		return fmt.Sprintf("insufficient inventory for product %d variant %s: requested %d, only %d available",
			e.ProductID, e.VariantID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient inventory for product %d: requested %d, only %d available",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}
