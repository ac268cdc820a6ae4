package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/store"
)

// messageReader is the part of kafka.Reader the poller consumes.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Poller empties a user's durable cart when an external checkout for that
// user completes. Checkout execution itself (payment, order record) happens
// outside this core; the poller only finishes the cart lifecycle.
type Poller struct {
	store  store.CartStore
	reader messageReader
}

// New creates a poller consuming the checkout-completed topic.
func New(st store.CartStore, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "checkout-completed",
		GroupID:  "storefront-cart-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{store: st, reader: reader}
}

// Run consumes messages until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.consumeOne(ctx)
	}
}

// Close shuts down the underlying reader.
func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		log.Printf("error closing reader: %v", err)
	}
}

func (p *Poller) consumeOne(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("error reading message: %v", err)
		}
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(m.Value, &payload); err != nil {
		log.Printf("error parsing message: %v", err)
		return
	}
	userID, ok := payload["user_id"].(string)
	if !ok {
		log.Println("missing or invalid user_id")
		return
	}

	if err := p.store.Clear(ctx, domain.UserRef(userID)); err != nil {
		log.Printf("failed to clear cart for user %s: %v", userID, err)
	}
}
