package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_storefront/internal/domain"
)

var errCacheMiss = errors.New("cache miss")

// CachedStore is a Redis read-through decorator over another CartStore.
// Loads are served from cache when possible; every write path deletes the
// cached entry so readers fall back to the durable store.
type CachedStore struct {
	next    CartStore
	client  *redis.Client
	baseTTL time.Duration
}

// NewCachedStore wraps next with a Redis cache.
func NewCachedStore(next CartStore, client *redis.Client) *CachedStore {
	return &CachedStore{
		next:    next,
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

// Load implements CartStore.
func (c *CachedStore) Load(ctx context.Context, ref domain.OwnerRef) (*domain.Cart, error) {
	cart, err := c.cacheGet(ctx, ref)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, errCacheMiss) {
		log.Printf("cache get error: %v", err) // log cache error but continue
	}

	cart, err = c.next.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	// Populate the cache off the request path.
	go func() {
		if errSet := c.cacheSet(context.Background(), ref, cart); errSet != nil {
			log.Printf("cache set error: %v", errSet)
		}
	}()

	return cart, nil
}

// Save implements CartStore.
func (c *CachedStore) Save(ctx context.Context, ref domain.OwnerRef, cart *domain.Cart) error {
	if err := c.next.Save(ctx, ref, cart); err != nil {
		return err
	}
	c.invalidate(ref)
	return nil
}

// Clear implements CartStore.
func (c *CachedStore) Clear(ctx context.Context, ref domain.OwnerRef) error {
	if err := c.next.Clear(ctx, ref); err != nil {
		return err
	}
	c.invalidate(ref)
	return nil
}

func (c *CachedStore) cacheGet(ctx context.Context, ref domain.OwnerRef) (*domain.Cart, error) {
	data, err := c.client.Get(ctx, cacheKey(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (c *CachedStore) cacheSet(ctx context.Context, ref domain.OwnerRef, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := c.client.Set(ctx, cacheKey(ref), data, c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *CachedStore) invalidate(ref domain.OwnerRef) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.client.Del(ctx, cacheKey(ref)).Err(); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}

func cacheKey(ref domain.OwnerRef) string {
	return fmt.Sprintf("cart:%s", ref.Key())
}
