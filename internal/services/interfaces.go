package services

import (
	"context"

	domain "github.com/shopspark/api/internal/domain"
	"github.com/shopspark/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Cart             = domain.Cart
	CartItem         = domain.CartItem
	FormValues       = domain.FormValues
	ValidationErrors = domain.ValidationErrors
	ShippingAddress  = domain.ShippingAddress
	Order            = domain.Order
	OrderLineItem    = domain.OrderLineItem
	OrderTotals      = domain.OrderTotals
	OrderStatus      = domain.OrderStatus
	OrderStore       = domain.OrderStore
	PaymentMethod    = domain.PaymentMethod
)

// CartOwner identifies who a cart belongs to. CustomerID wins when both are
// set; anonymous shoppers are tracked by SessionID.
type CartOwner struct {
	CustomerID string
	SessionID  string
}

// Key returns the storage key for the owner, or "" when neither id is set.
func (o CartOwner) Key() string {
	if o.CustomerID != "" {
		return o.CustomerID
	}
	return o.SessionID
}

// CartService manages the shopper's cart contents and derived totals.
type CartService interface {
	GetCart(ctx context.Context, owner CartOwner) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, owner CartOwner, productID string) (Cart, error)
	ClearCart(ctx context.Context, owner CartOwner) error
}

// OrderService is the persistence gateway for orders plus order history reads.
// SaveOrder routes authenticated orders to the remote store and falls back to
// the local durable cache on any remote failure; guest orders go straight to
// the fallback store.
type OrderService interface {
	SaveOrder(ctx context.Context, order Order) (Order, error)
	GetOrder(ctx context.Context, customerID, orderID string) (Order, error)
	ListOrders(ctx context.Context, customerID string, filter repositories.OrderListFilter) ([]Order, error)
}

// NotificationDispatcher sends the order confirmation message. Failures are
// logged and swallowed; Notify never reports an error to its caller.
type NotificationDispatcher interface {
	Notify(ctx context.Context, order Order)
}

// CheckoutService sequences validation, the auth gate, order build and
// persistence, notification, and cart clearing for a checkout submission.
type CheckoutService interface {
	SubmitCheckout(ctx context.Context, cmd SubmitCheckoutCommand) (CheckoutResult, error)
	ConsumeResumeSignal(ctx context.Context, sessionID string) (ResumeDecision, error)
}

// Command and DTO definitions ------------------------------------------------

// AddCartItemCommand adds a product snapshot to the owner's cart, bumping the
// quantity when the product is already present.
type AddCartItemCommand struct {
	Owner CartOwner
	Item  CartItem
}

// UpdateCartItemCommand replaces the quantity of a cart line. Zero removes it.
type UpdateCartItemCommand struct {
	Owner     CartOwner
	ProductID string
	Quantity  int
}

// SubmitCheckoutCommand carries one checkout submission.
type SubmitCheckoutCommand struct {
	SessionID     string
	CustomerID    string
	CustomerEmail string
	Form          FormValues
	PaymentMethod PaymentMethod
}

// CheckoutState enumerates the orchestrator's user-facing states.
type CheckoutState string

const (
	CheckoutStateIdle       CheckoutState = "idle"
	CheckoutStateValidating CheckoutState = "validating"
	CheckoutStateAuthGate   CheckoutState = "auth_gate"
	CheckoutStateSubmitting CheckoutState = "submitting"
	CheckoutStateSucceeded  CheckoutState = "succeeded"
	CheckoutStateFailed     CheckoutState = "failed"
)

// CheckoutResult reports the outcome of a submission. Exactly one of the
// optional fields is meaningful per terminal state: FieldErrors for a failed
// validation, RedirectTo for the auth gate and the empty-cart short-circuit,
// Order for a successful checkout.
type CheckoutResult struct {
	State       CheckoutState
	FieldErrors ValidationErrors
	RedirectTo  string
	Order       *Order
}

// ResumeDecision tells the client whether to re-enter checkout after login.
type ResumeDecision struct {
	ResumeCheckout bool
	ReturnTo       string
}
