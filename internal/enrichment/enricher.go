package enrichment

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shopsphere/cart-service/internal/concurrency"
	"github.com/shopsphere/cart-service/internal/models"
	"github.com/shopsphere/cart-service/internal/store"
)

// State is the per-line enrichment outcome for one request. It is the
// explicit skip/write-back signal, not an inference from field presence.
type State int

const (
	// StateUnenriched: the stored snapshot was already complete, no
	// lookup was made.
	StateUnenriched State = iota
	// StateEnriched: a lookup succeeded this request.
	StateEnriched
	// StateFailed: the lookup timed out, 404ed or errored; the line is
	// served as stored.
	StateFailed
)

// EnrichedLine pairs a cart line (with its product populated when
// obtainable) with how enrichment went for it.
type EnrichedLine struct {
	Line  models.CartLine
	State State
}

// EnrichedCart is the read view of a cart: lines plus the computed total.
type EnrichedCart struct {
	Lines []EnrichedLine
	Total float64
}

// ProductFetcher is the slice of the catalog client enrichment needs.
type ProductFetcher interface {
	GetProduct(ctx context.Context, productID string) (*models.ProductSnapshot, error)
}

// Enricher populates cart lines with live product data, best effort. One
// slow or missing product never blocks the others and never fails the
// request; successful lookups are persisted back so the next read skips
// the network entirely.
type Enricher struct {
	catalog ProductFetcher
	carts   store.CartStore
	locks   *concurrency.KeyMutex
	timeout time.Duration
	ttl     time.Duration
	logger  zerolog.Logger
}

func NewEnricher(catalog ProductFetcher, carts store.CartStore, locks *concurrency.KeyMutex, timeout, ttl time.Duration, logger zerolog.Logger) *Enricher {
	return &Enricher{
		catalog: catalog,
		carts:   carts,
		locks:   locks,
		timeout: timeout,
		ttl:     ttl,
		logger:  logger,
	}
}

// Enrich produces the read view for cart. Lookups for lines without a
// complete snapshot run concurrently, each under its own timeout. When key
// is non-empty, snapshots fetched here are written back to the store
// asynchronously.
func (e *Enricher) Enrich(ctx context.Context, key string, cart *models.Cart) EnrichedCart {
	result := EnrichedCart{Lines: make([]EnrichedLine, len(cart.Items))}

	g := new(errgroup.Group)
	for i := range cart.Items {
		i := i
		line := cart.Items[i]

		if line.Product.Complete() {
			result.Lines[i] = EnrichedLine{Line: line, State: StateUnenriched}
			continue
		}

		g.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
			defer cancel()

			snapshot, err := e.catalog.GetProduct(lookupCtx, line.ProductID)
			if err != nil {
				e.logger.Debug().Err(err).Str("product_id", line.ProductID).Msg("enrichment lookup failed")
				result.Lines[i] = EnrichedLine{Line: line, State: StateFailed}
				return nil
			}
			line.Product = snapshot
			result.Lines[i] = EnrichedLine{Line: line, State: StateEnriched}
			return nil
		})
	}
	_ = g.Wait()

	for _, el := range result.Lines {
		result.Total += float64(el.Line.Quantity) * effectivePrice(el.Line)
	}

	if key != "" {
		fetched := make(map[string]*models.ProductSnapshot)
		for _, el := range result.Lines {
			if el.State == StateEnriched {
				fetched[el.Line.ProductID] = el.Line.Product
			}
		}
		if len(fetched) > 0 {
			go e.persistSnapshots(key, fetched)
		}
	}

	return result
}

// persistSnapshots merges freshly fetched snapshots into the stored record
// so the next read avoids the catalog. It runs detached from the request:
// failures are logged and dropped, never surfaced.
func (e *Enricher) persistSnapshots(key string, fetched map[string]*models.ProductSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	unlock := e.locks.Lock(key)
	defer unlock()

	cart, err := e.carts.Get(ctx, key)
	if err != nil || cart.IsEmpty() {
		if err != nil {
			e.logger.Warn().Err(err).Str("key", key).Msg("snapshot write-back read failed")
		}
		return
	}

	changed := false
	for i := range cart.Items {
		snapshot, ok := fetched[cart.Items[i].ProductID]
		if !ok || cart.Items[i].Product.Complete() {
			continue
		}
		cart.Items[i].Product = snapshot
		changed = true
	}
	if !changed {
		return
	}

	if err := e.carts.Put(ctx, key, cart, e.ttl); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("snapshot write-back failed")
	}
}

// effectivePrice prefers the live snapshot price, then the price captured
// at add time. A line with neither prices at 0 so the cart stays
// renderable.
func effectivePrice(line models.CartLine) float64 {
	if line.Product.HasPrice() {
		return line.Product.Price
	}
	return line.Price
}
