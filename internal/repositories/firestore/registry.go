package firestore

import (
	"context"
	"errors"
	"time"

	"google.golang.org/api/iterator"

	pfirestore "github.com/shopspark/api/internal/platform/firestore"
	"github.com/shopspark/api/internal/repositories"
)

// RegistryConfig names the collections and the fallback store backing the registry.
type RegistryConfig struct {
	CartsCollection  string
	OrdersCollection string
	Fallback         repositories.FallbackOrderRepository
}

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider
	carts    *CartRepository
	orders   *OrderRepository
	fallback repositories.FallbackOrderRepository
	health   repositories.HealthRepository
}

// NewRegistry wires the repository set against a shared Firestore provider.
func NewRegistry(provider *pfirestore.Provider, cfg RegistryConfig) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}
	if cfg.Fallback == nil {
		return nil, errors.New("registry requires fallback order repository")
	}

	carts, err := NewCartRepository(provider, cfg.CartsCollection)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider, cfg.OrdersCollection)
	if err != nil {
		return nil, err
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				client, err := provider.Client(ctx)
				if err != nil {
					return err
				}
				iter := client.Collections(ctx)
				if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
					return err
				}
				return nil
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		carts:    carts,
		orders:   orders,
		fallback: cfg.Fallback,
		health:   health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Carts returns the cart repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// Orders returns the remote order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// FallbackOrders returns the local durable order cache.
func (r *Registry) FallbackOrders() repositories.FallbackOrderRepository { return r.fallback }

// Health returns the readiness probe repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

var _ repositories.Registry = (*Registry)(nil)
