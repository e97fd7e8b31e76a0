// Package pricing computes order totals. It is the only place an order total
// is derived, both at creation and after every item or delivery fee change.
package pricing

import (
	"github.com/foodboard/api/internal/database"
	"github.com/shopspring/decimal"
)

// LineTotal = unit_price * quantity + sum(add_on.price * quantity).
// Add-ons without a valid non-negative price contribute nothing.
func LineTotal(item database.OrderItem) decimal.Decimal {
	qty := decimal.NewFromInt32(item.Quantity)
	if item.Quantity < 0 {
		qty = decimal.Zero
	}

	line := item.UnitPrice.Mul(qty)
	for _, a := range item.Extras.AddOns {
		if !a.Price.Valid || a.Price.Decimal.IsNegative() {
			continue
		}
		line = line.Add(a.Price.Decimal.Mul(qty))
	}
	return line
}

// ComputeTotal sums every line and the delivery fee, rounded to cents.
// A null or negative fee counts as zero. It never fails.
func ComputeTotal(items []database.OrderItem, deliveryFee decimal.NullDecimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LineTotal(item))
	}
	if deliveryFee.Valid && !deliveryFee.Decimal.IsNegative() {
		total = total.Add(deliveryFee.Decimal)
	}
	return total.Round(2)
}
