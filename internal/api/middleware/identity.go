package middleware

import (
	"net/http"
	"strings"

	"github.com/shopsphere/cart-service/internal/identity"
)

const guestIDHeader = "X-Guest-Id"

// Identity resolves the cart's owner from the Authorization bearer token
// and/or the guest id header and stores it on the context. Resolution
// never rejects the request here; operations that need an identity fail
// downstream.
func Identity(resolver *identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			guestID := r.Header.Get(guestIDHeader)

			id := resolver.Resolve(r.Context(), token, guestID)
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
