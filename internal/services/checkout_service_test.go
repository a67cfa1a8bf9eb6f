package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/shopspark/api/internal/domain"
	"github.com/shopspark/api/internal/platform/resume"
	"github.com/shopspark/api/internal/repositories"
)

type stubCartService struct {
	cart         Cart
	getErr       error
	clearErr     error
	clearedOwner *CartOwner
}

func (s *stubCartService) GetCart(_ context.Context, owner CartOwner) (Cart, error) {
	return s.cart, s.getErr
}

func (s *stubCartService) AddItem(context.Context, AddCartItemCommand) (Cart, error) {
	return Cart{}, errors.New("unexpected AddItem call")
}

func (s *stubCartService) UpdateItemQuantity(context.Context, UpdateCartItemCommand) (Cart, error) {
	return Cart{}, errors.New("unexpected UpdateItemQuantity call")
}

func (s *stubCartService) RemoveItem(context.Context, CartOwner, string) (Cart, error) {
	return Cart{}, errors.New("unexpected RemoveItem call")
}

func (s *stubCartService) ClearCart(_ context.Context, owner CartOwner) error {
	s.clearedOwner = &owner
	return s.clearErr
}

type stubCheckoutOrderService struct {
	saved   []Order
	saveErr error
}

func (s *stubCheckoutOrderService) SaveOrder(_ context.Context, order Order) (Order, error) {
	if s.saveErr != nil {
		return Order{}, s.saveErr
	}
	order.ID = fmt.Sprintf("ord_%d", len(s.saved)+1)
	order.OrderNumber = "SS-TEST0001"
	s.saved = append(s.saved, order)
	return order, nil
}

func (s *stubCheckoutOrderService) GetOrder(context.Context, string, string) (Order, error) {
	return Order{}, errors.New("unexpected GetOrder call")
}

func (s *stubCheckoutOrderService) ListOrders(context.Context, string, repositories.OrderListFilter) ([]Order, error) {
	return nil, errors.New("unexpected ListOrders call")
}

type stubNotifier struct {
	notified []Order
}

func (s *stubNotifier) Notify(_ context.Context, order Order) {
	s.notified = append(s.notified, order)
}

func filledCart(owner CartOwner) Cart {
	return Cart{
		ID:         "crt_1",
		CustomerID: owner.CustomerID,
		SessionID:  owner.SessionID,
		Items:      []CartItem{{ProductID: "p1", Title: "Pen", UnitPrice: 1000, Quantity: 2}},
	}
}

type checkoutFixture struct {
	carts    *stubCartService
	orders   *stubCheckoutOrderService
	notifier *stubNotifier
	resume   *resume.MemoryStore
	svc      CheckoutService
	now      time.Time
}

func newCheckoutFixture(t *testing.T, cart Cart) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		carts:    &stubCartService{cart: cart},
		orders:   &stubCheckoutOrderService{},
		notifier: &stubNotifier{},
		resume:   resume.NewMemoryStore(),
		now:      time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Carts:    f.carts,
		Orders:   f.orders,
		Notifier: f.notifier,
		Resume:   f.resume,
		Clock:    fixedClock(f.now),
	})
	if err != nil {
		t.Fatalf("NewCheckoutService returned error: %v", err)
	}
	f.svc = svc
	return f
}

func TestSubmitCheckoutSucceeds(t *testing.T) {
	owner := CartOwner{CustomerID: "cus_1", SessionID: "sess-1"}
	f := newCheckoutFixture(t, filledCart(owner))

	result, err := f.svc.SubmitCheckout(context.Background(), SubmitCheckoutCommand{
		SessionID:     owner.SessionID,
		CustomerID:    owner.CustomerID,
		Form:          validCheckoutForm(),
		PaymentMethod: domain.PaymentMethodCreditCard,
	})
	if err != nil {
		t.Fatalf("SubmitCheckout returned error: %v", err)
	}

	if result.State != CheckoutStateSucceeded {
		t.Fatalf("state = %s, want succeeded", result.State)
	}
	if result.Order == nil || result.Order.ID == "" {
		t.Fatal("expected order snapshot in result")
	}
	if f.carts.clearedOwner == nil {
		t.Error("expected cart cleared after success")
	}
	if len(f.notifier.notified) != 1 {
		t.Errorf("expected 1 notification, got %d", len(f.notifier.notified))
	}
	if len(f.orders.saved) != 1 {
		t.Fatalf("expected 1 saved order, got %d", len(f.orders.saved))
	}
	if got := f.orders.saved[0].CustomerID; got != "cus_1" {
		t.Errorf("saved customer id = %q", got)
	}
}

func TestSubmitCheckoutEmptyCartRedirects(t *testing.T) {
	owner := CartOwner{CustomerID: "cus_1"}
	f := newCheckoutFixture(t, Cart{CustomerID: owner.CustomerID})

	result, err := f.svc.SubmitCheckout(context.Background(), SubmitCheckoutCommand{
		CustomerID:    owner.CustomerID,
		Form:          validCheckoutForm(),
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("SubmitCheckout returned error: %v", err)
	}
	if result.State != CheckoutStateFailed {
		t.Errorf("state = %s, want failed", result.State)
	}
	if result.RedirectTo != "/cart" {
		t.Errorf("redirect = %q, want /cart", result.RedirectTo)
	}
	if len(f.orders.saved) != 0 {
		t.Error("empty cart must not produce an order")
	}
}

func TestSubmitCheckoutValidationFailure(t *testing.T) {
	owner := CartOwner{CustomerID: "cus_1", SessionID: "sess-1"}
	f := newCheckoutFixture(t, filledCart(owner))

	form := validCheckoutForm()
	form.Email = "not-an-email"

	result, err := f.svc.SubmitCheckout(context.Background(), SubmitCheckoutCommand{
		SessionID:     owner.SessionID,
		CustomerID:    owner.CustomerID,
		Form:          form,
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("SubmitCheckout returned error: %v", err)
	}
	if result.State != CheckoutStateFailed {
		t.Errorf("state = %s, want failed", result.State)
	}
	if result.FieldErrors["email"] == "" {
		t.Errorf("expected email field error, got %v", result.FieldErrors)
	}
	if len(f.orders.saved) != 0 {
		t.Error("invalid form must not produce an order")
	}
	if f.carts.clearedOwner != nil {
		t.Error("cart must survive a failed validation")
	}
}

func TestSubmitCheckoutGuestHitsAuthGate(t *testing.T) {
	owner := CartOwner{SessionID: "sess-guest"}
	f := newCheckoutFixture(t, filledCart(owner))

	result, err := f.svc.SubmitCheckout(context.Background(), SubmitCheckoutCommand{
		SessionID:     owner.SessionID,
		Form:          validCheckoutForm(),
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("SubmitCheckout returned error: %v", err)
	}

	if result.State != CheckoutStateAuthGate {
		t.Fatalf("state = %s, want auth_gate", result.State)
	}
	if result.RedirectTo != "/signin" {
		t.Errorf("redirect = %q, want /signin", result.RedirectTo)
	}
	if len(f.orders.saved) != 0 {
		t.Error("guest submissions must not reach the order gateway")
	}
	if f.carts.clearedOwner != nil {
		t.Error("guest cart must survive the auth gate")
	}

	signal, ok, err := f.resume.Consume(context.Background(), "sess-guest", f.now)
	if err != nil || !ok {
		t.Fatalf("expected stored resume signal, ok=%v err=%v", ok, err)
	}
	if signal.ReturnTo != "/checkout" {
		t.Errorf("return to = %q, want /checkout", signal.ReturnTo)
	}
}

func TestSubmitCheckoutGuestInvalidFormSkipsAuthGate(t *testing.T) {
	owner := CartOwner{SessionID: "sess-guest"}
	f := newCheckoutFixture(t, filledCart(owner))

	result, err := f.svc.SubmitCheckout(context.Background(), SubmitCheckoutCommand{
		SessionID:     owner.SessionID,
		Form:          FormValues{},
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("SubmitCheckout returned error: %v", err)
	}
	if result.State != CheckoutStateFailed {
		t.Errorf("state = %s, want failed before the auth gate", result.State)
	}
	if _, ok, _ := f.resume.Consume(context.Background(), "sess-guest", f.now); ok {
		t.Error("invalid guest form must not write a resume signal")
	}
}

func TestSubmitCheckoutSaveFailure(t *testing.T) {
	owner := CartOwner{CustomerID: "cus_1"}
	f := newCheckoutFixture(t, filledCart(owner))
	f.orders.saveErr = fmt.Errorf("%w: disk full", ErrOrderSaveFailed)

	result, err := f.svc.SubmitCheckout(context.Background(), SubmitCheckoutCommand{
		CustomerID:    owner.CustomerID,
		Form:          validCheckoutForm(),
		PaymentMethod: domain.PaymentMethodCash,
	})
	if !errors.Is(err, ErrOrderSaveFailed) {
		t.Fatalf("expected ErrOrderSaveFailed, got %v", err)
	}
	if result.State != CheckoutStateFailed {
		t.Errorf("state = %s, want failed", result.State)
	}
	if f.carts.clearedOwner != nil {
		t.Error("cart must survive a failed save")
	}
	if len(f.notifier.notified) != 0 {
		t.Error("failed save must not notify")
	}
}

func TestSubmitCheckoutCartClearFailureDoesNotChangeOutcome(t *testing.T) {
	owner := CartOwner{CustomerID: "cus_1"}
	f := newCheckoutFixture(t, filledCart(owner))
	f.carts.clearErr = errors.New("store offline")

	result, err := f.svc.SubmitCheckout(context.Background(), SubmitCheckoutCommand{
		CustomerID:    owner.CustomerID,
		Form:          validCheckoutForm(),
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("SubmitCheckout returned error: %v", err)
	}
	if result.State != CheckoutStateSucceeded {
		t.Errorf("state = %s, want succeeded despite clear failure", result.State)
	}
	if len(f.notifier.notified) != 1 {
		t.Error("notification still expected after clear failure")
	}
}

func TestSubmitCheckoutUsesCustomerEmailWhenFormOmitsIt(t *testing.T) {
	owner := CartOwner{CustomerID: "cus_1"}
	cart := filledCart(owner)
	f := newCheckoutFixture(t, cart)

	form := validCheckoutForm()
	result, err := f.svc.SubmitCheckout(context.Background(), SubmitCheckoutCommand{
		CustomerID:    owner.CustomerID,
		CustomerEmail: "account@example.com",
		Form:          form,
		PaymentMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("SubmitCheckout returned error: %v", err)
	}
	if result.Order.ShippingAddress.Email != "ada@example.com" {
		t.Errorf("form email must win, got %q", result.Order.ShippingAddress.Email)
	}
}

func TestSubmitCheckoutRequiresIdentity(t *testing.T) {
	f := newCheckoutFixture(t, Cart{})

	_, err := f.svc.SubmitCheckout(context.Background(), SubmitCheckoutCommand{
		Form:          validCheckoutForm(),
		PaymentMethod: domain.PaymentMethodCash,
	})
	if !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected ErrCheckoutInvalidInput, got %v", err)
	}
}

func TestConsumeResumeSignal(t *testing.T) {
	f := newCheckoutFixture(t, Cart{})

	if err := f.resume.Set(context.Background(), resume.Signal{
		SessionID: "sess-1",
		ReturnTo:  "/checkout",
		CreatedAt: f.now,
		ExpiresAt: f.now.Add(30 * time.Minute),
	}); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	decision, err := f.svc.ConsumeResumeSignal(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("ConsumeResumeSignal returned error: %v", err)
	}
	if !decision.ResumeCheckout || decision.ReturnTo != "/checkout" {
		t.Errorf("unexpected decision %+v", decision)
	}

	decision, err = f.svc.ConsumeResumeSignal(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("second ConsumeResumeSignal returned error: %v", err)
	}
	if decision.ResumeCheckout {
		t.Error("signal must be destroyed on first read")
	}
}

func TestConsumeResumeSignalMissingSession(t *testing.T) {
	f := newCheckoutFixture(t, Cart{})

	if _, err := f.svc.ConsumeResumeSignal(context.Background(), "  "); !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected ErrCheckoutInvalidInput, got %v", err)
	}
}
