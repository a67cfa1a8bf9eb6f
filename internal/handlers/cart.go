package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/shopspark/api/internal/domain"
	"github.com/shopspark/api/internal/platform/auth"
	"github.com/shopspark/api/internal/platform/httpx"
	"github.com/shopspark/api/internal/services"
)

// CartHandlers exposes the cart endpoints. Guests are identified by the
// session header; signed-in shoppers by their verified identity.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

const maxCartBodySize = 16 * 1024

// NewCartHandlers constructs handlers invoking the cart service with the resolved owner.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		carts: carts,
	}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.OptionalFirebaseAuth())
	}
	r.Get("/", h.getCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}", h.updateItem)
	r.Delete("/items/{productID}", h.removeItem)
	r.Delete("/", h.clearCart)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.resolveOwner(ctx, w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, owner)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.resolveOwner(ctx, w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req addCartItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		Owner: owner,
		Item: services.CartItem{
			ProductID: req.ProductID,
			Title:     req.Title,
			UnitPrice: req.UnitPrice,
			ImageURL:  req.ImageURL,
			Quantity:  req.Quantity,
		},
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.resolveOwner(ctx, w, r)
	if !ok {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req updateCartItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.UpdateItemQuantity(ctx, services.UpdateCartItemCommand{
		Owner:     owner,
		ProductID: productID,
		Quantity:  *req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.resolveOwner(ctx, w, r)
	if !ok {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))

	cart, err := h.carts.RemoveItem(ctx, owner, productID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.resolveOwner(ctx, w, r)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(ctx, owner); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) resolveOwner(ctx context.Context, w http.ResponseWriter, r *http.Request) (services.CartOwner, bool) {
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return services.CartOwner{}, false
	}
	owner := cartOwnerFromRequest(r)
	if owner.Key() == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_required", "a session header or signed-in identity is required", http.StatusBadRequest))
		return services.CartOwner{}, false
	}
	return owner, true
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_item_not_found", "item is not in the cart", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "cart operation failed", http.StatusInternalServerError))
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func buildCartPayload(cart services.Cart) cartPayload {
	return cartPayload{
		ID:         strings.TrimSpace(cart.ID),
		ItemsCount: len(cart.Items),
		Items:      buildCartItems(cart.Items),
		Subtotal:   domain.Subtotal(cart.Items),
		UpdatedAt:  formatTime(cart.UpdatedAt),
	}
}

func buildCartItems(items []services.CartItem) []cartItemPayload {
	payload := make([]cartItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, cartItemPayload{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		})
	}
	return payload
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	ID         string            `json:"id"`
	ItemsCount int               `json:"items_count"`
	Items      []cartItemPayload `json:"items"`
	Subtotal   int64             `json:"subtotal"`
	UpdatedAt  string            `json:"updated_at,omitempty"`
}

type cartItemPayload struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	ImageURL  string `json:"image_url"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}
