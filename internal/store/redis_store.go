package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/shopsphere/cart-service/internal/models"
)

// RedisStore keeps one JSON-encoded cart record per identity key with a TTL
// that is reset on every write.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.Cart, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %v: %w", key, err, models.ErrStoreUnavailable)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		// A corrupt record is unrecoverable; treat it as absent so the
		// next write replaces it.
		return nil, nil
	}
	return &cart, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, cart *models.Cart, ttl time.Duration) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %v: %w", key, err, models.ErrStoreUnavailable)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %v: %w", key, err, models.ErrStoreUnavailable)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
