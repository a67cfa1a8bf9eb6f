package repositories

import (
	"context"

	domain "github.com/shopspark/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Orders() OrderRepository
	FallbackOrders() FallbackOrderRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository owns cart persistence keyed by the owner (customer id or
// guest session id).
type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (domain.Cart, error)
	UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	DeleteCart(ctx context.Context, ownerID string) error
}

// OrderRepository is the primary remote order store. The header and line
// items are written as two separate inserts; InsertLineItems referencing a
// header that failed to land is the caller's concern.
type OrderRepository interface {
	InsertHeader(ctx context.Context, order domain.Order) (domain.Order, error)
	InsertLineItems(ctx context.Context, orderID string, items []domain.OrderLineItem) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, filter OrderListFilter) ([]domain.Order, error)
}

// FallbackOrderRepository is the local durable cache that receives guest
// orders and any order whose remote write failed. Append is read-modify-write
// over the whole serialized collection.
type FallbackOrderRepository interface {
	Append(ctx context.Context, order domain.Order) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
}

// OrderListFilter narrows order history queries.
type OrderListFilter struct {
	Status *domain.OrderStatus
	Limit  int
}

// HealthRepository reports connectivity of the primary store for readiness checks.
type HealthRepository interface {
	Ping(ctx context.Context) error
}
