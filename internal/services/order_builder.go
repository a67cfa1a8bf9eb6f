package services

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/shopspark/api/internal/domain"
)

// BuildOrderCommand assembles an order from cart contents and a checkout form
// that has already passed validation.
type BuildOrderCommand struct {
	CustomerID    string
	Items         []CartItem
	Form          FormValues
	PaymentMethod PaymentMethod
	Now           time.Time
}

// BuildOrder produces a normalized pending order. Totals are computed exactly
// once here and never recomputed downstream. Identifiers are left empty for
// the persistence gateway to assign.
func BuildOrder(cmd BuildOrderCommand) (Order, error) {
	items := buildOrderLineItems(cmd.Items)
	if len(items) == 0 {
		return Order{}, fmt.Errorf("%w: cart must contain at least one item", ErrOrderInvalidInput)
	}
	if !cmd.PaymentMethod.Valid() {
		return Order{}, fmt.Errorf("%w: unsupported payment method %q", ErrOrderInvalidInput, cmd.PaymentMethod)
	}

	subtotal := domain.Subtotal(cmd.Items)

	return Order{
		CustomerID:      strings.TrimSpace(cmd.CustomerID),
		Items:           items,
		ShippingAddress: buildShippingAddress(cmd.Form),
		PaymentMethod:   cmd.PaymentMethod,
		Totals:          domain.PriceOrder(subtotal),
		Status:          domain.OrderStatusPending,
		CreatedAt:       cmd.Now.UTC(),
	}, nil
}

func buildOrderLineItems(items []CartItem) []OrderLineItem {
	out := make([]OrderLineItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		out = append(out, OrderLineItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return out
}

func buildShippingAddress(form FormValues) ShippingAddress {
	return ShippingAddress{
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
		Email:     strings.TrimSpace(form.Email),
		Address:   strings.TrimSpace(form.Address),
		City:      strings.TrimSpace(form.City),
		State:     strings.TrimSpace(form.State),
		ZipCode:   strings.TrimSpace(form.ZipCode),
	}
}
