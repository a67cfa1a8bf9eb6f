package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspark/api/internal/platform/config"
	"github.com/shopspark/api/internal/platform/resume"
	"github.com/shopspark/api/internal/repositories"
	"github.com/shopspark/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Cart     services.CartService
	Orders   services.OrderService
	Checkout services.CheckoutService
	Notifier services.NotificationDispatcher
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// ContainerDeps carries the infrastructure collaborators that live outside the
// repository registry.
type ContainerDeps struct {
	Events     services.OrderEventPublisher
	Resume     resume.Store
	HTTPClient *http.Client
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps ContainerDeps) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(cfg, reg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients and caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, reg repositories.Registry, deps ContainerDeps) (Services, error) {
	var svc Services

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: reg.Carts(),
		Clock:      time.Now,
		Logger:     deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   reg.Orders(),
		Fallback: reg.FallbackOrders(),
		Events:   deps.Events,
		Clock:    time.Now,
		Logger:   deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	if cfg.Notifications.Endpoint != "" {
		notifier, err := services.NewNotificationDispatcher(services.NotificationDispatcherDeps{
			EndpointURL: cfg.Notifications.Endpoint,
			AuthToken:   cfg.Notifications.AuthToken,
			HTTPClient:  deps.HTTPClient,
			Timeout:     cfg.Notifications.Timeout,
			Logger:      deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build notification dispatcher: %w", err)
		}
		svc.Notifier = notifier
	}

	resumeStore := deps.Resume
	if resumeStore == nil {
		resumeStore = resume.NewMemoryStore()
	}

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:     svc.Cart,
		Orders:    svc.Orders,
		Notifier:  svc.Notifier,
		Resume:    resumeStore,
		ResumeTTL: cfg.Resume.TTL,
		Clock:     time.Now,
		Logger:    deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	return svc, nil
}
