package enrichment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsphere/cart-service/internal/concurrency"
	"github.com/shopsphere/cart-service/internal/enrichment"
	"github.com/shopsphere/cart-service/internal/models"
	"github.com/shopsphere/cart-service/internal/store"
)

type scriptedCatalog struct {
	mu       sync.Mutex
	products map[string]models.ProductSnapshot
	delays   map[string]time.Duration
	calls    map[string]int
}

func newScriptedCatalog() *scriptedCatalog {
	return &scriptedCatalog{
		products: make(map[string]models.ProductSnapshot),
		delays:   make(map[string]time.Duration),
		calls:    make(map[string]int),
	}
}

func (c *scriptedCatalog) GetProduct(ctx context.Context, productID string) (*models.ProductSnapshot, error) {
	c.mu.Lock()
	c.calls[productID]++
	delay := c.delays[productID]
	p, ok := c.products[productID]
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if !ok {
		return nil, models.ErrProductNotFound
	}
	return &p, nil
}

func (c *scriptedCatalog) callsFor(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[productID]
}

func newTestEnricher(catalog enrichment.ProductFetcher, carts store.CartStore) *enrichment.Enricher {
	return enrichment.NewEnricher(catalog, carts, concurrency.NewKeyMutex(), 200*time.Millisecond, time.Hour, zerolog.Nop())
}

func TestEnrichPopulatesSnapshots(t *testing.T) {
	catalog := newScriptedCatalog()
	catalog.products["sku-1"] = models.ProductSnapshot{ID: "sku-1", Name: "Mug", Price: 12, Image: "mug.jpg"}

	e := newTestEnricher(catalog, store.NewMemoryStore())
	cart := &models.Cart{Items: []models.CartLine{{ProductID: "sku-1", Quantity: 2, Price: 10}}}

	result := e.Enrich(context.Background(), "", cart)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, enrichment.StateEnriched, result.Lines[0].State)
	require.NotNil(t, result.Lines[0].Line.Product)
	assert.Equal(t, "Mug", result.Lines[0].Line.Product.Name)
	assert.Equal(t, 24.0, result.Total, "live price wins over the stored one")
}

func TestEnrichSkipsCompleteSnapshots(t *testing.T) {
	catalog := newScriptedCatalog()
	e := newTestEnricher(catalog, store.NewMemoryStore())

	cart := &models.Cart{Items: []models.CartLine{{
		ProductID: "sku-1",
		Quantity:  1,
		Price:     10,
		Product:   &models.ProductSnapshot{Name: "Mug", Price: 12},
	}}}

	result := e.Enrich(context.Background(), "", cart)
	assert.Equal(t, enrichment.StateUnenriched, result.Lines[0].State)
	assert.Equal(t, 0, catalog.callsFor("sku-1"), "complete snapshot must not trigger a lookup")
	assert.Equal(t, 12.0, result.Total)
}

func TestEnrichFailureFallsBackToStoredPrice(t *testing.T) {
	catalog := newScriptedCatalog() // knows no products
	e := newTestEnricher(catalog, store.NewMemoryStore())

	cart := &models.Cart{Items: []models.CartLine{
		{ProductID: "sku-1", Quantity: 2, Price: 7},
		{ProductID: "sku-2", Quantity: 1}, // no price anywhere
	}}

	result := e.Enrich(context.Background(), "", cart)
	assert.Equal(t, enrichment.StateFailed, result.Lines[0].State)
	assert.Equal(t, enrichment.StateFailed, result.Lines[1].State)
	assert.Equal(t, 14.0, result.Total, "unpriceable lines contribute zero")
}

func TestEnrichOneSlowLookupDoesNotStarveOthers(t *testing.T) {
	catalog := newScriptedCatalog()
	catalog.products["fast"] = models.ProductSnapshot{Name: "Fast", Price: 3}
	catalog.products["slow"] = models.ProductSnapshot{Name: "Slow", Price: 100}
	catalog.delays["slow"] = time.Second // beyond the 200ms per-lookup timeout

	e := newTestEnricher(catalog, store.NewMemoryStore())
	cart := &models.Cart{Items: []models.CartLine{
		{ProductID: "slow", Quantity: 1, Price: 90},
		{ProductID: "fast", Quantity: 2, Price: 2},
	}}

	start := time.Now()
	result := e.Enrich(context.Background(), "", cart)
	assert.Less(t, time.Since(start), 800*time.Millisecond)

	assert.Equal(t, enrichment.StateFailed, result.Lines[0].State)
	assert.Equal(t, enrichment.StateEnriched, result.Lines[1].State)
	assert.Equal(t, 96.0, result.Total, "90 stored + 2×3 live")
}

func TestEnrichWritesSnapshotsBack(t *testing.T) {
	catalog := newScriptedCatalog()
	catalog.products["sku-1"] = models.ProductSnapshot{Name: "Mug", Price: 12}

	mem := store.NewMemoryStore()
	e := newTestEnricher(catalog, mem)

	ctx := context.Background()
	key := "cart:guest:wb"
	cart := &models.Cart{Items: []models.CartLine{{ProductID: "sku-1", Quantity: 1, Price: 10, AddedAt: time.Now()}}}
	require.NoError(t, mem.Put(ctx, key, cart, time.Hour))

	e.Enrich(ctx, key, cart)

	require.Eventually(t, func() bool {
		stored, err := mem.Get(ctx, key)
		if err != nil || stored.IsEmpty() {
			return false
		}
		return stored.Items[0].Product.Complete()
	}, 2*time.Second, 10*time.Millisecond, "fetched snapshot must be persisted")

	// Next read should be served from the stored snapshot.
	before := catalog.callsFor("sku-1")
	stored, err := mem.Get(ctx, key)
	require.NoError(t, err)
	e.Enrich(ctx, key, stored)
	assert.Equal(t, before, catalog.callsFor("sku-1"))
}

func TestEnrichWriteBackSkipsDeletedCart(t *testing.T) {
	catalog := newScriptedCatalog()
	catalog.products["sku-1"] = models.ProductSnapshot{Name: "Mug", Price: 12}

	mem := store.NewMemoryStore()
	e := newTestEnricher(catalog, mem)

	// The record was cleared between the read and the write-back.
	cart := &models.Cart{Items: []models.CartLine{{ProductID: "sku-1", Quantity: 1, Price: 10}}}
	result := e.Enrich(context.Background(), "cart:guest:gone", cart)
	assert.Equal(t, enrichment.StateEnriched, result.Lines[0].State)

	time.Sleep(50 * time.Millisecond)
	stored, err := mem.Get(context.Background(), "cart:guest:gone")
	require.NoError(t, err)
	assert.Nil(t, stored, "write-back must not resurrect a deleted cart")
}
