package store

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

// LocalStore keeps anonymous carts in memory, keyed by device identity.
// It is the device-local half of the CartStore contract: synchronous and
// always available, but surviving only for the process lifetime.
type LocalStore struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

// NewLocalStore creates an empty device-local store.
func NewLocalStore() *LocalStore {
	return &LocalStore{carts: make(map[string]*domain.Cart)}
}

// Load implements CartStore.
func (s *LocalStore) Load(_ context.Context, ref domain.OwnerRef) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[ref.Key()]
	if !ok {
		return nil, ErrCartNotFound
	}
	return cart.Clone(), nil
}

// Save implements CartStore.
func (s *LocalStore) Save(_ context.Context, ref domain.OwnerRef, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cart.Clone()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = time.Now()
	s.carts[ref.Key()] = cp
	return nil
}

// Clear implements CartStore. Clearing a missing cart is a no-op.
func (s *LocalStore) Clear(_ context.Context, ref domain.OwnerRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, ref.Key())
	return nil
}
