package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopspark/api/internal/platform/auth"
	"github.com/shopspark/api/internal/services"
)

type stubCartService struct {
	getCart    func(ctx context.Context, owner services.CartOwner) (services.Cart, error)
	addItem    func(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error)
	updateItem func(ctx context.Context, cmd services.UpdateCartItemCommand) (services.Cart, error)
	removeItem func(ctx context.Context, owner services.CartOwner, productID string) (services.Cart, error)
	clearCart  func(ctx context.Context, owner services.CartOwner) error
}

func (s *stubCartService) GetCart(ctx context.Context, owner services.CartOwner) (services.Cart, error) {
	if s.getCart == nil {
		return services.Cart{}, errors.New("unexpected GetCart call")
	}
	return s.getCart(ctx, owner)
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
	if s.addItem == nil {
		return services.Cart{}, errors.New("unexpected AddItem call")
	}
	return s.addItem(ctx, cmd)
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, cmd services.UpdateCartItemCommand) (services.Cart, error) {
	if s.updateItem == nil {
		return services.Cart{}, errors.New("unexpected UpdateItemQuantity call")
	}
	return s.updateItem(ctx, cmd)
}

func (s *stubCartService) RemoveItem(ctx context.Context, owner services.CartOwner, productID string) (services.Cart, error) {
	if s.removeItem == nil {
		return services.Cart{}, errors.New("unexpected RemoveItem call")
	}
	return s.removeItem(ctx, owner, productID)
}

func (s *stubCartService) ClearCart(ctx context.Context, owner services.CartOwner) error {
	if s.clearCart == nil {
		return errors.New("unexpected ClearCart call")
	}
	return s.clearCart(ctx, owner)
}

func newCartTestRouter(carts services.CartService) chi.Router {
	h := NewCartHandlers(nil, carts)
	r := chi.NewRouter()
	r.Route("/cart", h.Routes)
	return r
}

func sampleCart() services.Cart {
	return services.Cart{
		ID:        "crt_1",
		SessionID: "sess-1",
		Items: []services.CartItem{
			{ProductID: "p1", Title: "Pen", UnitPrice: 1000, Quantity: 2},
			{ProductID: "p2", Title: "Ink", UnitPrice: 500, Quantity: 1},
		},
		UpdatedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGetCartHandler(t *testing.T) {
	carts := &stubCartService{
		getCart: func(_ context.Context, owner services.CartOwner) (services.Cart, error) {
			if owner.SessionID != "sess-1" {
				t.Errorf("owner session = %q", owner.SessionID)
			}
			return sampleCart(), nil
		},
	}
	router := newCartTestRouter(carts)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Cart struct {
			ID         string `json:"id"`
			ItemsCount int    `json:"items_count"`
			Subtotal   int64  `json:"subtotal"`
		} `json:"cart"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Cart.ID != "crt_1" || resp.Cart.ItemsCount != 2 {
		t.Errorf("unexpected cart payload: %+v", resp.Cart)
	}
	if resp.Cart.Subtotal != 2500 {
		t.Errorf("subtotal = %d, want 2500", resp.Cart.Subtotal)
	}
}

func TestGetCartHandlerUsesIdentityOverSession(t *testing.T) {
	var gotOwner services.CartOwner
	carts := &stubCartService{
		getCart: func(_ context.Context, owner services.CartOwner) (services.Cart, error) {
			gotOwner = owner
			return services.Cart{}, nil
		},
	}
	router := newCartTestRouter(carts)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(SessionHeader, "sess-1")
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "cus_1"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotOwner.CustomerID != "cus_1" {
		t.Errorf("customer id = %q, want cus_1", gotOwner.CustomerID)
	}
	if gotOwner.Key() != "cus_1" {
		t.Errorf("owner key = %q, identity should win", gotOwner.Key())
	}
}

func TestGetCartHandlerRequiresOwner(t *testing.T) {
	router := newCartTestRouter(&stubCartService{})

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "session_required") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAddItemHandler(t *testing.T) {
	var gotCmd services.AddCartItemCommand
	carts := &stubCartService{
		addItem: func(_ context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
			gotCmd = cmd
			return sampleCart(), nil
		},
	}
	router := newCartTestRouter(carts)

	body := `{"product_id":"p1","title":"Pen","unit_price":1000,"quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotCmd.Item.ProductID != "p1" || gotCmd.Item.Quantity != 2 {
		t.Errorf("unexpected command: %+v", gotCmd)
	}
}

func TestAddItemHandlerInvalidJSON(t *testing.T) {
	router := newCartTestRouter(&stubCartService{})

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader("{broken"))
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddItemHandlerValidationError(t *testing.T) {
	carts := &stubCartService{
		addItem: func(context.Context, services.AddCartItemCommand) (services.Cart, error) {
			return services.Cart{}, fmt.Errorf("%w: product id is required", services.ErrCartInvalidInput)
		},
	}
	router := newCartTestRouter(carts)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"title":"Pen"}`))
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateItemHandler(t *testing.T) {
	var gotCmd services.UpdateCartItemCommand
	carts := &stubCartService{
		updateItem: func(_ context.Context, cmd services.UpdateCartItemCommand) (services.Cart, error) {
			gotCmd = cmd
			return sampleCart(), nil
		},
	}
	router := newCartTestRouter(carts)

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/p1", strings.NewReader(`{"quantity":0}`))
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotCmd.ProductID != "p1" || gotCmd.Quantity != 0 {
		t.Errorf("unexpected command: %+v", gotCmd)
	}
}

func TestUpdateItemHandlerMissingQuantity(t *testing.T) {
	router := newCartTestRouter(&stubCartService{})

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/p1", strings.NewReader(`{}`))
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateItemHandlerNotFound(t *testing.T) {
	carts := &stubCartService{
		updateItem: func(context.Context, services.UpdateCartItemCommand) (services.Cart, error) {
			return services.Cart{}, fmt.Errorf("%w: ghost", services.ErrCartItemNotFound)
		},
	}
	router := newCartTestRouter(carts)

	req := httptest.NewRequest(http.MethodPatch, "/cart/items/ghost", strings.NewReader(`{"quantity":1}`))
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRemoveItemHandler(t *testing.T) {
	carts := &stubCartService{
		removeItem: func(_ context.Context, _ services.CartOwner, productID string) (services.Cart, error) {
			if productID != "p2" {
				t.Errorf("product id = %q", productID)
			}
			cart := sampleCart()
			cart.Items = cart.Items[:1]
			return cart, nil
		},
	}
	router := newCartTestRouter(carts)

	req := httptest.NewRequest(http.MethodDelete, "/cart/items/p2", nil)
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Cart struct {
			ItemsCount int `json:"items_count"`
		} `json:"cart"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Cart.ItemsCount != 1 {
		t.Errorf("items count = %d, want 1", resp.Cart.ItemsCount)
	}
}

func TestClearCartHandler(t *testing.T) {
	cleared := false
	carts := &stubCartService{
		clearCart: func(context.Context, services.CartOwner) error {
			cleared = true
			return nil
		},
	}
	router := newCartTestRouter(carts)

	req := httptest.NewRequest(http.MethodDelete, "/cart", nil)
	req.Header.Set(SessionHeader, "sess-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if !cleared {
		t.Error("expected ClearCart invoked")
	}
}

var _ services.CartService = (*stubCartService)(nil)
