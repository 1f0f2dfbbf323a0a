package store_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsphere/cart-service/internal/models"
	"github.com/shopsphere/cart-service/internal/store"
	"github.com/shopsphere/cart-service/pkg/redisconn"
)

// requireRedis skips when no local Redis is reachable so the suite stays
// runnable without infrastructure.
func requireRedis(t *testing.T) *store.RedisStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis test in short mode")
	}
	conn, err := net.DialTimeout("tcp", "localhost:6379", 500*time.Millisecond)
	if err != nil {
		t.Skip("Redis not available at localhost:6379")
	}
	conn.Close()

	client, err := redisconn.New("redis://localhost:6379")
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	s := store.NewRedisStore(client)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testKey() string {
	return "cart:guest:test-" + uuid.NewString()
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := requireRedis(t)
	ctx := context.Background()
	key := testKey()
	defer s.Delete(ctx, key)

	cart := &models.Cart{Items: []models.CartLine{{
		ProductID: "sku-1",
		Quantity:  2,
		Price:     9.99,
		Product:   &models.ProductSnapshot{Name: "Mug", Price: 9.99},
		AddedAt:   time.Now().UTC().Truncate(time.Second),
	}}}
	require.NoError(t, s.Put(ctx, key, cart, time.Minute))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Items, 1)
	assert.Equal(t, cart.Items[0], got.Items[0])
}

func TestRedisStoreAbsentKey(t *testing.T) {
	s := requireRedis(t)

	got, err := s.Get(context.Background(), testKey())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreDelete(t *testing.T) {
	s := requireRedis(t)
	ctx := context.Background()
	key := testKey()

	cart := &models.Cart{Items: []models.CartLine{{ProductID: "sku-1", Quantity: 1}}}
	require.NoError(t, s.Put(ctx, key, cart, time.Minute))
	require.NoError(t, s.Delete(ctx, key))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	s := requireRedis(t)
	ctx := context.Background()
	key := testKey()

	cart := &models.Cart{Items: []models.CartLine{{ProductID: "sku-1", Quantity: 1}}}
	require.NoError(t, s.Put(ctx, key, cart, time.Second))

	time.Sleep(1500 * time.Millisecond)

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "record must expire with its TTL")
}
