package store

import (
	"context"
	"time"

	"github.com/shopsphere/cart-service/internal/models"
)

// CartStore is the keyed, TTL-expiring store of record for carts.
//
// Get returns (nil, nil) for an absent key; "no cart yet" and "empty cart"
// are the same thing to callers. Put replaces the whole record and resets
// its TTL. Implementations wrap infrastructure failures in
// models.ErrStoreUnavailable.
type CartStore interface {
	Get(ctx context.Context, key string) (*models.Cart, error)
	Put(ctx context.Context, key string, cart *models.Cart, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
