package identity

import "context"

// Kind discriminates who owns a cart.
type Kind int

const (
	KindNone Kind = iota
	KindGuest
	KindUser
)

// Identity is the resolved owner of a cart for one request. User and guest
// carts live in disjoint key spaces, so a guest who later authenticates
// does not silently land on the same record.
type Identity struct {
	Kind  Kind
	Value string

	// MergeGuestID is set when an authenticated request also carried a
	// guest identifier. It is not part of the identity itself; the
	// service uses it to fold the guest cart into the user cart once.
	MergeGuestID string
}

func User(id string) Identity  { return Identity{Kind: KindUser, Value: id} }
func Guest(id string) Identity { return Identity{Kind: KindGuest, Value: id} }
func None() Identity           { return Identity{Kind: KindNone} }

func (id Identity) IsNone() bool  { return id.Kind == KindNone }
func (id Identity) IsGuest() bool { return id.Kind == KindGuest }

// Key derives the storage key for this identity.
func (id Identity) Key() string {
	switch id.Kind {
	case KindUser:
		return "cart:user:" + id.Value
	case KindGuest:
		return "cart:guest:" + id.Value
	default:
		return ""
	}
}

// GuestKey derives the storage key for the guest cart referenced by
// MergeGuestID.
func (id Identity) GuestKey() string {
	if id.MergeGuestID == "" {
		return ""
	}
	return "cart:guest:" + id.MergeGuestID
}

// TokenVerifier checks a bearer token with the auth service and returns the
// user id it belongs to. The cart service never inspects tokens itself.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

// Resolver turns request credentials into exactly one identity.
type Resolver struct {
	verifier TokenVerifier
}

func NewResolver(verifier TokenVerifier) *Resolver {
	return &Resolver{verifier: verifier}
}

// Resolve applies the precedence rules: a verifiable bearer token wins, a
// guest id is next, otherwise the request is anonymous. A token that fails
// verification falls open to the guest id rather than erroring, so a stale
// token in the browser never breaks shopping.
func (r *Resolver) Resolve(ctx context.Context, bearerToken, guestID string) Identity {
	if bearerToken != "" && r.verifier != nil {
		if userID, err := r.verifier.Verify(ctx, bearerToken); err == nil && userID != "" {
			id := User(userID)
			id.MergeGuestID = guestID
			return id
		}
	}
	if guestID != "" {
		return Guest(guestID)
	}
	return None()
}

type contextKey struct{}

// WithIdentity stashes the resolved identity on the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity resolved by the middleware, or None.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(contextKey{}).(Identity); ok {
		return id
	}
	return None()
}
