package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
)

var (
	// ErrCartNotFound means no cart exists for the identity yet.
	ErrCartNotFound = errors.New("cart not found")

	// ErrPersistence classifies failures to durably load, save or clear a
	// cart. Callers match it with errors.Is and decide whether to retry;
	// the engine never retries on its own.
	ErrPersistence = errors.New("cart store persistence failure")
)

// CartStore is the adapter contract both storage domains implement: the
// device-local store (synchronous, one device) and the authenticated store
// (network-backed, durable, may fail transiently).
type CartStore interface {
	Load(ctx context.Context, ref domain.OwnerRef) (*domain.Cart, error)
	Save(ctx context.Context, ref domain.OwnerRef, cart *domain.Cart) error
	Clear(ctx context.Context, ref domain.OwnerRef) error
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
