package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breaker wraps a network-backed Catalog with a circuit breaker so a dead
// catalog backend fails fast instead of stalling every cart mutation.
// ErrNotFound is a valid answer and does not count as a failure.
type Breaker struct {
	next Catalog
	cb   *gobreaker.CircuitBreaker[Availability]
}

// NewBreaker wraps next with default breaker settings.
func NewBreaker(next Catalog) *Breaker {
	settings := gobreaker.Settings{
		Name:    "catalog",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	}
	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[Availability](settings),
	}
}

// GetAvailability implements Catalog.
func (b *Breaker) GetAvailability(ctx context.Context, productID int64, variantID string) (Availability, error) {
	return b.cb.Execute(func() (Availability, error) {
		return b.next.GetAvailability(ctx, productID, variantID)
	})
}
