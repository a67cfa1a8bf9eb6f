package domain

import (
	"time"
)

// PaymentMethod identifies how the shopper intends to pay for an order.
type PaymentMethod string

const (
	// PaymentMethodCreditCard collects card fields on the checkout form.
	PaymentMethodCreditCard PaymentMethod = "credit-card"
	// PaymentMethodCash defers payment to delivery; no card fields required.
	PaymentMethodCash PaymentMethod = "cash"
)

// Valid reports whether the payment method is one the checkout accepts.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodCash:
		return true
	default:
		return false
	}
}

// OrderStatus tracks an order through its lifecycle. Checkout only ever
// creates orders in OrderStatusPending; later transitions belong to
// fulfillment systems outside this service.
type OrderStatus string

const (
	// OrderStatusPending marks a freshly created, unfulfilled order.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing marks an order picked up by fulfillment.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusCompleted marks a delivered order.
	OrderStatusCompleted OrderStatus = "completed"
)

// CartItem is a product snapshot held in a shopper's cart. UnitPrice is in
// minor currency units.
type CartItem struct {
	ProductID string
	Title     string
	UnitPrice int64
	ImageURL  string
	Quantity  int
}

// Cart aggregates the items a shopper has selected. Authenticated carts are
// keyed by CustomerID, guest carts by SessionID.
type Cart struct {
	ID         string
	CustomerID string
	SessionID  string
	Items      []CartItem
	UpdatedAt  time.Time
}

// IsEmpty reports whether the cart holds no purchasable items.
func (c Cart) IsEmpty() bool {
	for _, item := range c.Items {
		if item.Quantity > 0 {
			return false
		}
	}
	return true
}

// FormValues carries the raw checkout form fields exactly as submitted.
// Nothing here is trusted until the validator has run.
type FormValues struct {
	FirstName  string
	LastName   string
	Email      string
	Address    string
	City       string
	State      string
	ZipCode    string
	CardNumber string
	CardName   string
	ExpiryDate string
	CVV        string
}

// ValidationErrors maps a checkout form field to a human-readable message.
// An empty map means the form passed validation.
type ValidationErrors map[string]string

// Valid reports whether no field was flagged.
func (v ValidationErrors) Valid() bool { return len(v) == 0 }

// ShippingAddress is the validated address subset of the checkout form,
// including the contact email used for order confirmation.
type ShippingAddress struct {
	FirstName string
	LastName  string
	Email     string
	Address   string
	City      string
	State     string
	ZipCode   string
}

// FullName renders the recipient name for notification payloads.
func (a ShippingAddress) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}

// OrderLineItem is a priced order line derived from a cart item at build
// time. UnitPrice is in minor currency units.
type OrderLineItem struct {
	ID        string
	ProductID string
	Title     string
	UnitPrice int64
	Quantity  int
}

// OrderTotals records the pricing breakdown computed once when the order is
// built and never recomputed afterwards. Amounts are in minor currency units.
type OrderTotals struct {
	Subtotal          int64
	ShippingSurcharge int64
	Tax               int64
	Total             int64
}

// Order is the canonical persisted entity produced by checkout. An empty
// CustomerID marks a guest order, which is only ever stored locally.
type Order struct {
	ID              string
	OrderNumber     string
	CustomerID      string
	Items           []OrderLineItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	Totals          OrderTotals
	Status          OrderStatus
	CreatedAt       time.Time
}

// OrderStore identifies which durable store holds an order record.
type OrderStore string

const (
	// OrderStoreRemote is the primary managed backend.
	OrderStoreRemote OrderStore = "remote"
	// OrderStoreFallback is the local durable cache used when the remote
	// write fails or the order is a guest order.
	OrderStoreFallback OrderStore = "fallback"
)
