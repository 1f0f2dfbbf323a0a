package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopsphere/cart-service/internal/concurrency"
	"github.com/shopsphere/cart-service/internal/enrichment"
	"github.com/shopsphere/cart-service/internal/identity"
	"github.com/shopsphere/cart-service/internal/models"
	"github.com/shopsphere/cart-service/internal/store"
)

// CartView is the response shape shared by every cart operation.
type CartView struct {
	Items   []LineView `json:"items"`
	Total   float64    `json:"total"`
	GuestID string     `json:"guestId,omitempty"`
}

type LineView struct {
	ProductID string                  `json:"productId"`
	Quantity  int                     `json:"quantity"`
	Price     float64                 `json:"price"`
	Product   *models.ProductSnapshot `json:"product,omitempty"`
	AddedAt   time.Time               `json:"addedAt"`
}

// mutation deadline, independent of the caller's connection
const storeOpTimeout = 5 * time.Second

// CartService composes identity, store and enrichment into the five cart
// operations. Mutations against the same identity are serialized through a
// per-key lock; carts for different identities share nothing.
type CartService struct {
	carts    store.CartStore
	catalog  enrichment.ProductFetcher
	enricher *enrichment.Enricher
	locks    *concurrency.KeyMutex
	ttl      time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewCartService(carts store.CartStore, catalog enrichment.ProductFetcher, enricher *enrichment.Enricher, locks *concurrency.KeyMutex, ttl time.Duration, logger zerolog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		catalog:  catalog,
		enricher: enricher,
		locks:    locks,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the enriched cart for id. An anonymous request gets an empty
// cart rather than an error so browsing never breaks.
func (s *CartService) Get(ctx context.Context, id identity.Identity) (CartView, error) {
	if id.IsNone() {
		return emptyView(id), nil
	}
	if err := s.mergeGuestCart(ctx, id); err != nil {
		return CartView{}, err
	}

	cart, err := s.carts.Get(ctx, id.Key())
	if err != nil {
		return CartView{}, err
	}
	if cart.IsEmpty() {
		return emptyView(id), nil
	}
	return s.view(ctx, id, cart), nil
}

// Add puts quantity of productID into the cart, accumulating onto an
// existing line. The unit price comes from the first usable source: the
// caller's snapshot, a live catalog lookup, then whatever the stored line
// already has. Only when all three fail does Add error.
func (s *CartService) Add(ctx context.Context, id identity.Identity, productID string, quantity int, snapshot *models.ProductSnapshot) (CartView, error) {
	if id.IsNone() {
		return CartView{}, models.ErrIdentityRequired
	}
	if quantity < 1 {
		return CartView{}, models.ErrInvalidQuantity
	}
	if err := s.mergeGuestCart(ctx, id); err != nil {
		return CartView{}, err
	}

	key := id.Key()
	unlock := s.locks.Lock(key)

	opCtx, cancel := s.mutationContext(ctx)
	defer cancel()

	cart, err := s.carts.Get(opCtx, key)
	if err != nil {
		unlock()
		return CartView{}, err
	}
	if cart == nil {
		cart = &models.Cart{}
	}

	idx := cart.Find(productID)

	price, stored, err := s.derivePrice(opCtx, productID, snapshot, cart, idx)
	if err != nil {
		unlock()
		return CartView{}, err
	}

	if idx >= 0 {
		cart.Items[idx].Quantity += quantity
		if cart.Items[idx].Product == nil && stored != nil {
			cart.Items[idx].Product = stored
		}
	} else {
		cart.Items = append(cart.Items, models.CartLine{
			ProductID: productID,
			Quantity:  quantity,
			Price:     price,
			Product:   stored,
			AddedAt:   s.now().UTC(),
		})
	}

	if err := s.carts.Put(opCtx, key, cart, s.ttl); err != nil {
		unlock()
		return CartView{}, err
	}
	unlock()

	return s.view(ctx, id, cart), nil
}

// UpdateQuantity sets a line's quantity absolutely. Zero and negative are
// rejected; callers remove lines explicitly.
func (s *CartService) UpdateQuantity(ctx context.Context, id identity.Identity, productID string, quantity int) (CartView, error) {
	if id.IsNone() {
		return CartView{}, models.ErrIdentityRequired
	}
	if quantity < 1 {
		return CartView{}, models.ErrInvalidQuantity
	}
	if err := s.mergeGuestCart(ctx, id); err != nil {
		return CartView{}, err
	}

	key := id.Key()
	unlock := s.locks.Lock(key)

	opCtx, cancel := s.mutationContext(ctx)
	defer cancel()

	cart, err := s.carts.Get(opCtx, key)
	if err != nil {
		unlock()
		return CartView{}, err
	}
	idx := -1
	if cart != nil {
		idx = cart.Find(productID)
	}
	if idx < 0 {
		unlock()
		return CartView{}, models.ErrLineNotFound
	}

	cart.Items[idx].Quantity = quantity
	if err := s.carts.Put(opCtx, key, cart, s.ttl); err != nil {
		unlock()
		return CartView{}, err
	}
	unlock()

	return s.view(ctx, id, cart), nil
}

// Remove drops a line. Removing a product that is not in the cart is fine;
// the observable state is the same either way. A cart left with no lines
// is deleted, never stored as an empty shell.
func (s *CartService) Remove(ctx context.Context, id identity.Identity, productID string) (CartView, error) {
	if id.IsNone() {
		return CartView{}, models.ErrIdentityRequired
	}
	if err := s.mergeGuestCart(ctx, id); err != nil {
		return CartView{}, err
	}

	key := id.Key()
	unlock := s.locks.Lock(key)

	opCtx, cancel := s.mutationContext(ctx)
	defer cancel()

	cart, err := s.carts.Get(opCtx, key)
	if err != nil {
		unlock()
		return CartView{}, err
	}
	if cart.IsEmpty() {
		unlock()
		return emptyView(id), nil
	}

	kept := cart.Items[:0]
	for _, line := range cart.Items {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	cart.Items = kept

	if len(cart.Items) == 0 {
		err = s.carts.Delete(opCtx, key)
	} else {
		err = s.carts.Put(opCtx, key, cart, s.ttl)
	}
	unlock()
	if err != nil {
		return CartView{}, err
	}

	if len(cart.Items) == 0 {
		return emptyView(id), nil
	}
	return s.view(ctx, id, cart), nil
}

// Clear deletes the cart record outright. Idempotent.
func (s *CartService) Clear(ctx context.Context, id identity.Identity) error {
	if id.IsNone() {
		return models.ErrIdentityRequired
	}

	key := id.Key()
	unlock := s.locks.Lock(key)
	defer unlock()

	opCtx, cancel := s.mutationContext(ctx)
	defer cancel()

	if err := s.carts.Delete(opCtx, key); err != nil {
		return err
	}
	if gk := id.GuestKey(); gk != "" {
		if err := s.carts.Delete(opCtx, gk); err != nil {
			return err
		}
	}
	return nil
}

// mergeGuestCart folds a guest cart into the user's when an authenticated
// request also carried the guest identifier, then deletes the guest
// record. Shared products accumulate quantity and keep the user line's
// price and addedAt; guest-only lines append in their original order. Runs
// at most once per guest cart: the second call finds nothing to merge.
func (s *CartService) mergeGuestCart(ctx context.Context, id identity.Identity) error {
	guestKey := id.GuestKey()
	if id.Kind != identity.KindUser || guestKey == "" {
		return nil
	}

	userKey := id.Key()

	// Fixed order avoids deadlock against a concurrent merge.
	unlockGuest := s.locks.Lock(guestKey)
	defer unlockGuest()
	unlockUser := s.locks.Lock(userKey)
	defer unlockUser()

	opCtx, cancel := s.mutationContext(ctx)
	defer cancel()

	guestCart, err := s.carts.Get(opCtx, guestKey)
	if err != nil {
		return err
	}
	if guestCart.IsEmpty() {
		return nil
	}

	userCart, err := s.carts.Get(opCtx, userKey)
	if err != nil {
		return err
	}
	if userCart == nil {
		userCart = &models.Cart{}
	}

	for _, guestLine := range guestCart.Items {
		if idx := userCart.Find(guestLine.ProductID); idx >= 0 {
			userCart.Items[idx].Quantity += guestLine.Quantity
			continue
		}
		userCart.Items = append(userCart.Items, guestLine)
	}

	if err := s.carts.Put(opCtx, userKey, userCart, s.ttl); err != nil {
		return err
	}
	if err := s.carts.Delete(opCtx, guestKey); err != nil {
		return err
	}

	s.logger.Info().
		Str("user_key", userKey).
		Int("merged_lines", len(guestCart.Items)).
		Msg("merged guest cart on login")
	return nil
}

// derivePrice resolves the unit price for an add, preferring the caller's
// snapshot, then a live lookup, then the existing line. The returned
// snapshot, if any, is what gets persisted on a new line.
func (s *CartService) derivePrice(ctx context.Context, productID string, snapshot *models.ProductSnapshot, cart *models.Cart, existing int) (float64, *models.ProductSnapshot, error) {
	if snapshot.HasPrice() {
		return snapshot.Price, keepable(snapshot), nil
	}

	fetched, err := s.catalog.GetProduct(ctx, productID)
	if err == nil && fetched.HasPrice() {
		return fetched.Price, keepable(fetched), nil
	}
	if err != nil {
		s.logger.Debug().Err(err).Str("product_id", productID).Msg("catalog lookup failed during add")
	}

	if existing >= 0 {
		return cart.Items[existing].Price, nil, nil
	}
	return 0, nil, fmt.Errorf("no price source for %s: %w", productID, models.ErrProductNotFound)
}

// keepable filters what gets persisted as a line's product: a bare price
// is captured on the line itself, only a renderable snapshot is worth
// storing (and worth skipping enrichment for).
func keepable(snapshot *models.ProductSnapshot) *models.ProductSnapshot {
	if snapshot.Complete() {
		return snapshot
	}
	return nil
}

// mutationContext detaches the read-modify-write from the caller's
// connection so a disconnect mid-request cannot leave a half-applied
// mutation, while still bounding the work.
func (s *CartService) mutationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), storeOpTimeout)
}

func (s *CartService) view(ctx context.Context, id identity.Identity, cart *models.Cart) CartView {
	enriched := s.enricher.Enrich(ctx, id.Key(), cart)

	view := CartView{
		Items: make([]LineView, len(enriched.Lines)),
		Total: enriched.Total,
	}
	for i, el := range enriched.Lines {
		view.Items[i] = LineView{
			ProductID: el.Line.ProductID,
			Quantity:  el.Line.Quantity,
			Price:     el.Line.Price,
			Product:   el.Line.Product,
			AddedAt:   el.Line.AddedAt,
		}
	}
	if id.IsGuest() {
		view.GuestID = id.Value
	}
	return view
}

func emptyView(id identity.Identity) CartView {
	view := CartView{Items: []LineView{}}
	if id.IsGuest() {
		view.GuestID = id.Value
	}
	return view
}
