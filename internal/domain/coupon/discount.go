package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Calculate returns the discount a coupon grants against an order subtotal.
// It is pure: no clock, no repository, no mutation.
//
// Percentage discounts are capped by MaxDiscount when set; every discount is
// finally clamped to the subtotal so the payable amount can never go negative.
// Amounts are rounded to whole currency units (VND has no minor unit).
func Calculate(c *Coupon, orderTotal decimal.Decimal) (decimal.Decimal, error) {
	var amount decimal.Decimal

	switch c.Type {
	case DiscountPercentage:
		amount = orderTotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscount.IsPositive() && amount.GreaterThan(c.MaxDiscount) {
			amount = c.MaxDiscount
		}
	case DiscountFixed:
		amount = c.Value
	default:
		return decimal.Zero, errors.Errorf("unsupported discount type: %q", c.Type)
	}

	if amount.GreaterThan(orderTotal) {
		amount = orderTotal
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(0), nil
}
