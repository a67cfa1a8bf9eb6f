package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/shopspark/api/internal/domain"
	"github.com/shopspark/api/internal/platform/auth"
	"github.com/shopspark/api/internal/platform/httpx"
	"github.com/shopspark/api/internal/repositories"
	"github.com/shopspark/api/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

var validOrderStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusPending:    {},
	domain.OrderStatusProcessing: {},
	domain.OrderStatusCompleted:  {},
}

// OrderHandlers exposes order history endpoints for authenticated shoppers.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	query := r.URL.Query()

	var filter repositories.OrderListFilter
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := domain.OrderStatus(raw)
		if _, ok := validOrderStatuses[status]; !ok {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be one of pending, processing, completed", http.StatusBadRequest))
			return
		}
		filter.Status = &status
	}

	filter.Limit = defaultOrderPageSize
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be an integer", http.StatusBadRequest))
			return
		}
		switch {
		case limit <= 0:
			filter.Limit = defaultOrderPageSize
		case limit > maxOrderPageSize:
			filter.Limit = maxOrderPageSize
		default:
			filter.Limit = limit
		}
	}

	orders, err := h.orders.ListOrders(ctx, identity.UID, filter)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, ordersResponse{Orders: payload})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	order, err := h.orders.GetOrder(ctx, identity.UID, orderID)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func (h *OrderHandlers) writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to read orders", http.StatusInternalServerError))
	}
}

func buildOrderPayload(order services.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	return orderPayload{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Items:         items,
		Shipping: orderShippingPayload{
			Name:    order.ShippingAddress.FullName(),
			Email:   order.ShippingAddress.Email,
			Address: order.ShippingAddress.Address,
			City:    order.ShippingAddress.City,
			State:   order.ShippingAddress.State,
			ZipCode: order.ShippingAddress.ZipCode,
		},
		Totals: orderTotalsPayload{
			Subtotal:          order.Totals.Subtotal,
			ShippingSurcharge: order.Totals.ShippingSurcharge,
			Tax:               order.Totals.Tax,
			Total:             order.Totals.Total,
		},
		CreatedAt: formatTime(order.CreatedAt),
	}
}

type ordersResponse struct {
	Orders []orderPayload `json:"orders"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID            string               `json:"id"`
	OrderNumber   string               `json:"order_number"`
	Status        string               `json:"status"`
	PaymentMethod string               `json:"payment_method"`
	Items         []orderItemPayload   `json:"items"`
	Shipping      orderShippingPayload `json:"shipping_address"`
	Totals        orderTotalsPayload   `json:"totals"`
	CreatedAt     string               `json:"created_at,omitempty"`
}

type orderItemPayload struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type orderShippingPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

type orderTotalsPayload struct {
	Subtotal          int64 `json:"subtotal"`
	ShippingSurcharge int64 `json:"shipping_surcharge"`
	Tax               int64 `json:"tax"`
	Total             int64 `json:"total"`
}
