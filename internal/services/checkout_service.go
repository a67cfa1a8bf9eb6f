package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspark/api/internal/platform/resume"
)

const (
	checkoutPathCart     = "/cart"
	checkoutPathSignIn   = "/signin"
	checkoutPathCheckout = "/checkout"
)

const (
	checkoutEventStarted   = "checkout.started"
	checkoutEventRejected  = "checkout.validation.failed"
	checkoutEventAuthGate  = "checkout.auth_gate"
	checkoutEventSucceeded = "checkout.succeeded"
	checkoutEventFailed    = "checkout.failed"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// CheckoutServiceDeps wires the dependencies required by the checkout orchestrator.
type CheckoutServiceDeps struct {
	Carts     CartService
	Orders    OrderService
	Notifier  NotificationDispatcher
	Resume    resume.Store
	ResumeTTL time.Duration
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	carts     CartService
	orders    OrderService
	notifier  NotificationDispatcher
	resume    resume.Store
	resumeTTL time.Duration
	now       func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order service is required")
	}
	if deps.Resume == nil {
		return nil, errors.New("checkout service: resume store is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	ttl := deps.ResumeTTL
	if ttl <= 0 {
		ttl = resume.DefaultTTL
	}

	return &checkoutService{
		carts:     deps.Carts,
		orders:    deps.Orders,
		notifier:  deps.Notifier,
		resume:    deps.Resume,
		resumeTTL: ttl,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// SubmitCheckout drives a checkout submission through validation, the
// sign-in gate, and order persistence. The cart is cleared only after the
// order has been saved.
func (s *checkoutService) SubmitCheckout(ctx context.Context, cmd SubmitCheckoutCommand) (CheckoutResult, error) {
	owner := CartOwner{CustomerID: strings.TrimSpace(cmd.CustomerID), SessionID: strings.TrimSpace(cmd.SessionID)}
	if owner.Key() == "" {
		return CheckoutResult{}, fmt.Errorf("%w: session or customer id is required", ErrCheckoutInvalidInput)
	}

	s.logger(ctx, checkoutEventStarted, map[string]any{
		"sessionId":     owner.SessionID,
		"authenticated": owner.CustomerID != "",
	})

	cart, err := s.carts.GetCart(ctx, owner)
	if err != nil {
		return CheckoutResult{}, err
	}
	if cart.IsEmpty() {
		return CheckoutResult{
			State:      CheckoutStateFailed,
			RedirectTo: checkoutPathCart,
		}, nil
	}

	fieldErrors := ValidateCheckoutForm(cmd.Form, cmd.PaymentMethod)
	if !fieldErrors.Valid() {
		s.logger(ctx, checkoutEventRejected, map[string]any{
			"sessionId": owner.SessionID,
			"fields":    len(fieldErrors),
		})
		return CheckoutResult{
			State:       CheckoutStateFailed,
			FieldErrors: fieldErrors,
		}, nil
	}

	if owner.CustomerID == "" {
		return s.deferToSignIn(ctx, owner)
	}

	order, err := BuildOrder(BuildOrderCommand{
		CustomerID:    owner.CustomerID,
		Items:         cart.Items,
		Form:          cmd.Form,
		PaymentMethod: cmd.PaymentMethod,
		Now:           s.now(),
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	if order.ShippingAddress.Email == "" {
		order.ShippingAddress.Email = strings.TrimSpace(cmd.CustomerEmail)
	}

	saved, err := s.orders.SaveOrder(ctx, order)
	if err != nil {
		s.logger(ctx, checkoutEventFailed, map[string]any{
			"sessionId": owner.SessionID,
			"error":     err.Error(),
		})
		if errors.Is(err, ErrOrderSaveFailed) {
			return CheckoutResult{State: CheckoutStateFailed}, err
		}
		return CheckoutResult{}, err
	}

	s.finalize(ctx, owner, saved)

	s.logger(ctx, checkoutEventSucceeded, map[string]any{
		"orderId":   saved.ID,
		"sessionId": owner.SessionID,
	})

	return CheckoutResult{
		State: CheckoutStateSucceeded,
		Order: &saved,
	}, nil
}

// ConsumeResumeSignal reports whether the session should be sent back into
// checkout after signing in. The signal is destroyed on read.
func (s *checkoutService) ConsumeResumeSignal(ctx context.Context, sessionID string) (ResumeDecision, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ResumeDecision{}, fmt.Errorf("%w: session id is required", ErrCheckoutInvalidInput)
	}

	signal, ok, err := s.resume.Consume(ctx, sessionID, s.now())
	if err != nil {
		return ResumeDecision{}, err
	}
	if !ok {
		return ResumeDecision{}, nil
	}

	returnTo := signal.ReturnTo
	if returnTo == "" {
		returnTo = checkoutPathCheckout
	}
	return ResumeDecision{
		ResumeCheckout: true,
		ReturnTo:       returnTo,
	}, nil
}

// deferToSignIn records the resume signal and gates the submission. No order
// data is written for unauthenticated shoppers.
func (s *checkoutService) deferToSignIn(ctx context.Context, owner CartOwner) (CheckoutResult, error) {
	if owner.SessionID == "" {
		return CheckoutResult{}, fmt.Errorf("%w: session id is required for guest checkout", ErrCheckoutInvalidInput)
	}

	now := s.now()
	if err := s.resume.Set(ctx, resume.Signal{
		SessionID: owner.SessionID,
		ReturnTo:  checkoutPathCheckout,
		CreatedAt: now,
		ExpiresAt: now.Add(s.resumeTTL),
	}); err != nil {
		return CheckoutResult{}, err
	}

	s.logger(ctx, checkoutEventAuthGate, map[string]any{
		"sessionId": owner.SessionID,
	})

	return CheckoutResult{
		State:      CheckoutStateAuthGate,
		RedirectTo: checkoutPathSignIn,
	}, nil
}

// finalize clears the cart and dispatches the confirmation. Both steps run
// after the order is durable and neither can change the checkout outcome.
func (s *checkoutService) finalize(ctx context.Context, owner CartOwner, order Order) {
	detached := context.WithoutCancel(ctx)

	if err := s.carts.ClearCart(detached, owner); err != nil {
		s.logger(detached, "checkout.cart.clear.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}

	if s.notifier != nil {
		s.notifier.Notify(detached, order)
	}
}
