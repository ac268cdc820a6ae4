package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/go_storefront/internal/domain"
)

// MongoStore is the authenticated half of the CartStore contract: carts are
// documents keyed by owner identity, written whole on every save
// (last-write-wins at the cart level).
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a store over the "carts" collection of db.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection("carts")}
}

// mongoLine mirrors domain.CartLine with the snapshot price as a string so
// the decimal survives BSON without a custom codec.
type mongoLine struct {
	ID        string    `bson:"id"`
	ProductID int64     `bson:"product_id"`
	VariantID string    `bson:"variant_id,omitempty"`
	Quantity  int       `bson:"quantity"`
	Name      string    `bson:"name"`
	UnitPrice string    `bson:"unit_price"`
	ImageURL  string    `bson:"image_url,omitempty"`
	AddedAt   time.Time `bson:"added_at"`
}

type mongoCart struct {
	OwnerKey  string          `bson:"owner_key"`
	Owner     domain.OwnerRef `bson:"owner"`
	Lines     []mongoLine     `bson:"lines"`
	CreatedAt time.Time       `bson:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

func toMongo(ref domain.OwnerRef, cart *domain.Cart) *mongoCart {
	doc := &mongoCart{
		OwnerKey:  ref.Key(),
		Owner:     ref,
		Lines:     make([]mongoLine, len(cart.Lines)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for i, l := range cart.Lines {
		doc.Lines[i] = mongoLine{
			ID:        l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			Name:      l.Name,
			UnitPrice: l.UnitPrice.String(),
			ImageURL:  l.ImageURL,
			AddedAt:   l.AddedAt,
		}
	}
	return doc
}

func (d *mongoCart) toDomain() (*domain.Cart, error) {
	cart := &domain.Cart{
		Owner:     d.Owner,
		Lines:     make([]domain.CartLine, len(d.Lines)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for i, l := range d.Lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("decode unit price %q: %w", l.UnitPrice, err)
		}
		cart.Lines[i] = domain.CartLine{
			ID:        l.ID,
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			Name:      l.Name,
			UnitPrice: price,
			ImageURL:  l.ImageURL,
			AddedAt:   l.AddedAt,
		}
	}
	return cart, nil
}

// Load implements CartStore.
func (s *MongoStore) Load(ctx context.Context, ref domain.OwnerRef) (*domain.Cart, error) {
	var doc mongoCart

	filter := bson.M{"owner_key": ref.Key()}
	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, persistence("failed to load cart", err)
	}

	return doc.toDomain()
}

// Save implements CartStore. The whole cart is upserted in one write.
func (s *MongoStore) Save(ctx context.Context, ref domain.OwnerRef, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"owner_key": ref.Key()}
	update := bson.M{"$set": toMongo(ref, cart)}
	opts := options.Update().SetUpsert(true)

	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return persistence("failed to save cart", err)
	}
	return nil
}

// Clear implements CartStore. Clearing a missing cart is a no-op so retiring
// an already-retired cart stays safe.
func (s *MongoStore) Clear(ctx context.Context, ref domain.OwnerRef) error {
	filter := bson.M{"owner_key": ref.Key()}

	if _, err := s.collection.DeleteOne(ctx, filter); err != nil {
		return persistence("failed to clear cart", err)
	}
	return nil
}

// CreateIndexes sets up the unique owner index and a 90-day TTL on stale
// carts.
func (s *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}

	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
