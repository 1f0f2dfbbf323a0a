package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopsphere/cart-service/internal/api/handlers"
	"github.com/shopsphere/cart-service/internal/api/middleware"
	"github.com/shopsphere/cart-service/internal/identity"
)

// NewRouter builds the HTTP router for the cart-service
func NewRouter(resolver *identity.Resolver, handler *handlers.CartHandler) http.Handler {
	r := chi.NewRouter()

	// Cart endpoints: optional authentication, guest carts supported
	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(resolver))

		r.Get("/cart", handler.GetCart)
		r.Post("/cart/add", handler.AddToCart)
		r.Put("/cart/{productId}", handler.UpdateCartItem)
		r.Delete("/cart/{productId}", handler.RemoveFromCart)
		r.Delete("/cart", handler.ClearCart)
	})

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"cart-service"}`))
	})

	return r
}
