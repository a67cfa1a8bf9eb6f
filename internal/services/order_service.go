package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/shopspark/api/internal/domain"
	"github.com/shopspark/api/internal/repositories"
)

const (
	orderEventCreated = "order.created"

	orderIDPrefix = "ord_"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located in either store.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderSaveFailed indicates both the remote write and the local
	// fallback write failed. This is the only save failure surfaced to callers.
	ErrOrderSaveFailed = errors.New("order: save failed")
)

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) (string, error)
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId"`
	CustomerID  string    `json:"customerId,omitempty"`
	Store       string    `json:"store"`
	TotalAmount int64     `json:"totalAmount"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Fallback    repositories.FallbackOrderRepository
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	fallback repositories.FallbackOrderRepository
	clock    func() time.Time
	newID    func() string
	events   OrderEventPublisher
	logger   func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Fallback == nil {
		return nil, errors.New("order service: fallback repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:   deps.Orders,
		fallback: deps.Fallback,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		logger: logger,
	}, nil
}

// SaveOrder writes the order remotely when a customer id is present, falling
// back to the local durable cache on any remote failure. Guest orders skip the
// remote store entirely. A returned order always carries a valid id, timestamp,
// and pending status regardless of which store holds it.
func (s *orderService) SaveOrder(ctx context.Context, order Order) (Order, error) {
	if len(order.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}
	order.Status = domain.OrderStatusPending
	customerID := strings.TrimSpace(order.CustomerID)
	order.CustomerID = customerID

	if customerID != "" {
		saved, err := s.saveRemote(ctx, order)
		if err == nil {
			s.publishEvent(ctx, saved, domain.OrderStoreRemote)
			return saved, nil
		}
		s.logger(ctx, "order.remote.save.failed", map[string]any{
			"customer": customerID,
			"error":    err.Error(),
		})
	}

	saved, err := s.saveFallback(ctx, order)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrOrderSaveFailed, err)
	}
	s.publishEvent(ctx, saved, domain.OrderStoreFallback)
	return saved, nil
}

// saveRemote performs the two-part write: header first, then line items
// referencing the generated order id. A line-item failure after a successful
// header insert fails the whole attempt and leaves the orphaned header in
// place; no compensating delete is issued.
func (s *orderService) saveRemote(ctx context.Context, order Order) (Order, error) {
	order.ID = s.nextOrderID()
	order.OrderNumber = s.orderNumber(order.ID)
	order.CreatedAt = s.now()

	saved, err := s.orders.InsertHeader(ctx, order)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if err := s.orders.InsertLineItems(ctx, saved.ID, saved.Items); err != nil {
		s.logger(ctx, "order.remote.orphaned_header", map[string]any{
			"order": saved.ID,
			"error": err.Error(),
		})
		return Order{}, s.mapRepositoryError(err)
	}
	return saved, nil
}

func (s *orderService) saveFallback(ctx context.Context, order Order) (Order, error) {
	order.ID = s.nextOrderID()
	order.OrderNumber = s.orderNumber(order.ID)
	order.CreatedAt = s.now()
	return s.fallback.Append(ctx, order)
}

func (s *orderService) GetOrder(ctx context.Context, customerID, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	customerID = strings.TrimSpace(customerID)

	if customerID != "" {
		order, err := s.orders.FindByID(ctx, orderID)
		if err == nil {
			if order.CustomerID != customerID {
				return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
			}
			return order, nil
		}
		if !errors.Is(s.mapRepositoryError(err), ErrOrderNotFound) {
			s.logger(ctx, "order.remote.get.failed", map[string]any{
				"order": orderID,
				"error": err.Error(),
			})
		}
	}

	order, err := s.fallback.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if order.CustomerID != customerID {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return order, nil
}

// ListOrders merges the shopper's remote order history with any orders that
// landed in the local fallback cache, newest first.
func (s *orderService) ListOrders(ctx context.Context, customerID string, filter repositories.OrderListFilter) ([]Order, error) {
	customerID = strings.TrimSpace(customerID)

	var merged []Order
	if customerID != "" {
		remote, err := s.orders.ListByCustomer(ctx, customerID, filter)
		if err != nil {
			s.logger(ctx, "order.remote.list.failed", map[string]any{
				"customer": customerID,
				"error":    err.Error(),
			})
		} else {
			merged = append(merged, remote...)
		}
	}

	local, err := s.fallback.List(ctx)
	if err != nil {
		if len(merged) == 0 {
			return nil, err
		}
		s.logger(ctx, "order.fallback.list.failed", map[string]any{"error": err.Error()})
	} else {
		for _, order := range local {
			if order.CustomerID != customerID {
				continue
			}
			if filter.Status != nil && order.Status != *filter.Status {
				continue
			}
			merged = append(merged, order)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if filter.Limit > 0 && len(merged) > filter.Limit {
		merged = merged[:filter.Limit]
	}
	return merged, nil
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}
	return err
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

func (s *orderService) orderNumber(orderID string) string {
	suffix := strings.TrimPrefix(orderID, orderIDPrefix)
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return fmt.Sprintf("SS-%s", strings.ToUpper(suffix))
}

func (s *orderService) publishEvent(ctx context.Context, order Order, store domain.OrderStore) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		Type:        orderEventCreated,
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		Store:       string(store),
		TotalAmount: order.Totals.Total,
		OccurredAt:  s.now(),
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}
