package models

import "errors"

// Error taxonomy for cart operations. Handlers map these to HTTP statuses;
// everything else is an internal error.
var (
	// ErrIdentityRequired: no user or guest identity could be derived and
	// the operation needs one.
	ErrIdentityRequired = errors.New("identity required")

	// ErrInvalidQuantity: quantity below 1 on an update. Removal is a
	// separate, explicit operation.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")

	// ErrLineNotFound: update targeted a product not in the cart.
	ErrLineNotFound = errors.New("item not found in cart")

	// ErrProductNotFound: add could not derive a price from any source.
	ErrProductNotFound = errors.New("product not found")

	// ErrUpstreamUnavailable: catalog unreachable. Never surfaced to the
	// client; reads degrade to stored prices instead.
	ErrUpstreamUnavailable = errors.New("catalog unavailable")

	// ErrStoreUnavailable: the cart store itself is down. Fatal for the
	// request, there is no fallback for the store of record.
	ErrStoreUnavailable = errors.New("cart store unavailable")
)
