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

	"github.com/go-chi/chi/v5"

	domain "github.com/shopspark/api/internal/domain"
	"github.com/shopspark/api/internal/platform/auth"
	"github.com/shopspark/api/internal/repositories"
	"github.com/shopspark/api/internal/services"
)

type stubOrderService struct {
	saveOrder  func(ctx context.Context, order services.Order) (services.Order, error)
	getOrder   func(ctx context.Context, customerID, orderID string) (services.Order, error)
	listOrders func(ctx context.Context, customerID string, filter repositories.OrderListFilter) ([]services.Order, error)
}

func (s *stubOrderService) SaveOrder(ctx context.Context, order services.Order) (services.Order, error) {
	if s.saveOrder == nil {
		return services.Order{}, errors.New("unexpected SaveOrder call")
	}
	return s.saveOrder(ctx, order)
}

func (s *stubOrderService) GetOrder(ctx context.Context, customerID, orderID string) (services.Order, error) {
	if s.getOrder == nil {
		return services.Order{}, errors.New("unexpected GetOrder call")
	}
	return s.getOrder(ctx, customerID, orderID)
}

func (s *stubOrderService) ListOrders(ctx context.Context, customerID string, filter repositories.OrderListFilter) ([]services.Order, error) {
	if s.listOrders == nil {
		return nil, errors.New("unexpected ListOrders call")
	}
	return s.listOrders(ctx, customerID, filter)
}

var _ services.OrderService = (*stubOrderService)(nil)

func newOrderTestRouter(orders services.OrderService) chi.Router {
	h := NewOrderHandlers(nil, orders)
	r := chi.NewRouter()
	r.Route("/orders", h.Routes)
	return r
}

func authenticatedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "cus_1", Email: "ada@example.com"}))
}

func TestListOrdersHandler(t *testing.T) {
	var gotCustomer string
	var gotFilter repositories.OrderListFilter
	orders := &stubOrderService{
		listOrders: func(_ context.Context, customerID string, filter repositories.OrderListFilter) ([]services.Order, error) {
			gotCustomer = customerID
			gotFilter = filter
			return []services.Order{savedOrder()}, nil
		},
	}
	router := newOrderTestRouter(orders)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(http.MethodGet, "/orders"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotCustomer != "cus_1" {
		t.Errorf("customer = %q", gotCustomer)
	}
	if gotFilter.Limit != defaultOrderPageSize {
		t.Errorf("limit = %d, want default %d", gotFilter.Limit, defaultOrderPageSize)
	}

	var resp struct {
		Orders []struct {
			ID       string `json:"id"`
			Shipping struct {
				Name string `json:"name"`
			} `json:"shipping_address"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].ID != "ord_1" {
		t.Errorf("unexpected response: %s", rec.Body.String())
	}
	if resp.Orders[0].Shipping.Name != "Ada Lovelace" {
		t.Errorf("shipping name = %q", resp.Orders[0].Shipping.Name)
	}
}

func TestListOrdersHandlerStatusFilter(t *testing.T) {
	var gotFilter repositories.OrderListFilter
	orders := &stubOrderService{
		listOrders: func(_ context.Context, _ string, filter repositories.OrderListFilter) ([]services.Order, error) {
			gotFilter = filter
			return nil, nil
		},
	}
	router := newOrderTestRouter(orders)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(http.MethodGet, "/orders?status=completed&limit=5"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotFilter.Status == nil || *gotFilter.Status != domain.OrderStatusCompleted {
		t.Errorf("status filter = %v", gotFilter.Status)
	}
	if gotFilter.Limit != 5 {
		t.Errorf("limit = %d, want 5", gotFilter.Limit)
	}
}

func TestListOrdersHandlerRejectsUnknownStatus(t *testing.T) {
	router := newOrderTestRouter(&stubOrderService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(http.MethodGet, "/orders?status=shipped"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListOrdersHandlerClampsLimit(t *testing.T) {
	var gotFilter repositories.OrderListFilter
	orders := &stubOrderService{
		listOrders: func(_ context.Context, _ string, filter repositories.OrderListFilter) ([]services.Order, error) {
			gotFilter = filter
			return nil, nil
		},
	}
	router := newOrderTestRouter(orders)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(http.MethodGet, "/orders?limit=9999"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotFilter.Limit != maxOrderPageSize {
		t.Errorf("limit = %d, want clamped %d", gotFilter.Limit, maxOrderPageSize)
	}
}

func TestListOrdersHandlerRequiresIdentity(t *testing.T) {
	router := newOrderTestRouter(&stubOrderService{})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unauthenticated") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestGetOrderHandler(t *testing.T) {
	orders := &stubOrderService{
		getOrder: func(_ context.Context, customerID, orderID string) (services.Order, error) {
			if customerID != "cus_1" || orderID != "ord_1" {
				t.Errorf("unexpected lookup %q %q", customerID, orderID)
			}
			return savedOrder(), nil
		},
	}
	router := newOrderTestRouter(orders)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(http.MethodGet, "/orders/ord_1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Order struct {
			ID     string `json:"id"`
			Totals struct {
				Subtotal          int64 `json:"subtotal"`
				ShippingSurcharge int64 `json:"shipping_surcharge"`
				Tax               int64 `json:"tax"`
				Total             int64 `json:"total"`
			} `json:"totals"`
		} `json:"order"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Order.ID != "ord_1" || resp.Order.Totals.Total != 2660 {
		t.Errorf("unexpected response: %s", rec.Body.String())
	}
}

func TestGetOrderHandlerNotFound(t *testing.T) {
	orders := &stubOrderService{
		getOrder: func(context.Context, string, string) (services.Order, error) {
			return services.Order{}, fmt.Errorf("%w: ord_missing", services.ErrOrderNotFound)
		},
	}
	router := newOrderTestRouter(orders)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(http.MethodGet, "/orders/ord_missing"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "order_not_found") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
