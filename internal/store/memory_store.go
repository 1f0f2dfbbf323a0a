package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopsphere/cart-service/internal/models"
)

// MemoryStore is an in-process CartStore used in tests and as a dev
// fallback when no REDIS_URL is configured. Records are kept as JSON bytes
// so callers get the same copy semantics as the Redis store.
type MemoryStore struct {
	mu    sync.RWMutex
	store map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{store: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*models.Cart, error) {
	m.mu.RLock()
	entry, ok := m.store[key]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.store, key)
		m.mu.Unlock()
		return nil, nil
	}

	var cart models.Cart
	if err := json.Unmarshal(entry.data, &cart); err != nil {
		return nil, nil
	}
	return &cart, nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, cart *models.Cart, ttl time.Duration) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.store[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.store, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// ExpiresAt exposes a record's expiry for tests; the zero time means the
// key is absent.
func (m *MemoryStore) ExpiresAt(key string) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store[key].expiresAt
}
