package domain

// Pricing policy constants, in minor currency units and basis points.
const (
	// FreeShippingThreshold is the subtotal at or above which shipping is free.
	FreeShippingThreshold int64 = 5000
	// ShippingSurcharge is the flat shipping fee below the threshold.
	ShippingSurcharge int64 = 500
	// TaxRateBasisPoints is the sales tax rate applied to the subtotal.
	TaxRateBasisPoints int64 = 800
)

// Subtotal sums unit price times quantity across the given items.
func Subtotal(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// PriceOrder derives the full order totals from a subtotal. Integer cents
// keep repeated additions exact; the tax division truncates toward zero.
func PriceOrder(subtotal int64) OrderTotals {
	surcharge := ShippingSurcharge
	if subtotal >= FreeShippingThreshold {
		surcharge = 0
	}
	tax := subtotal * TaxRateBasisPoints / 10000
	return OrderTotals{
		Subtotal:          subtotal,
		ShippingSurcharge: surcharge,
		Tax:               tax,
		Total:             subtotal + surcharge + tax,
	}
}
