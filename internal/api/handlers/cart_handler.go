package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/shopsphere/cart-service/internal/identity"
	"github.com/shopsphere/cart-service/internal/models"
	"github.com/shopsphere/cart-service/internal/service"
)

// --- Request DTOs ---

type AddToCartRequest struct {
	ProductID string                  `json:"productId"`
	Quantity  int                     `json:"quantity"`
	Product   *models.ProductSnapshot `json:"product,omitempty"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// --- Handler struct & constructor ---

type CartHandler struct {
	service *service.CartService
	logger  zerolog.Logger
}

func NewCartHandler(svc *service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *CartHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrIdentityRequired):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	case errors.Is(err, models.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Quantity must be greater than 0"})
	case errors.Is(err, models.ErrLineNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Item not found in cart"})
	case errors.Is(err, models.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Product not found"})
	case errors.Is(err, models.ErrStoreUnavailable):
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("cart store unavailable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Service unavailable"})
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("cart operation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

// --- Handlers ---

// GetCart handles GET /cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AddToCart handles POST /cart/add
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	fieldErrors := map[string]string{}
	if req.ProductID == "" {
		fieldErrors["productId"] = "Product ID is required"
	}
	if req.Quantity < 1 {
		fieldErrors["quantity"] = "Quantity must be at least 1"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fieldErrors})
		return
	}

	view, err := h.service.Add(r.Context(), identity.FromContext(r.Context()), req.ProductID, req.Quantity, req.Product)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateCartItem handles PUT /cart/{productId}
func (h *CartHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	productID := chi.URLParam(r, "productId")
	view, err := h.service.UpdateQuantity(r.Context(), identity.FromContext(r.Context()), productID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RemoveFromCart handles DELETE /cart/{productId}
func (h *CartHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	view, err := h.service.Remove(r.Context(), identity.FromContext(r.Context()), productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), identity.FromContext(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}
