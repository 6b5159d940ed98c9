package domain

import (
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// CalculateDiscount computes the discount a campaign yields for the given cart
// context. The base is the cart subtotal for CART-scoped campaigns and the
// delivery fee for DELIVERY-scoped ones.
//
// The result is never negative, never exceeds the base it applies to, and for
// percentage campaigns never exceeds the configured cap. All arithmetic is
// exact decimal; the result is rounded down to two decimal places so rounding
// can never push it past the base.
func CalculateDiscount(c *Campaign, cartTotal, deliveryFee decimal.Decimal) decimal.Decimal {
	base := cartTotal
	if c.Scope == ScopeDelivery {
		base = deliveryFee
	}

	if base.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	if c.DiscountType == DiscountTypeFixed {
		discount = c.DiscountValue
	} else {
		discount = base.Mul(c.DiscountValue).Div(oneHundred)
		if c.MaxDiscountCap != nil {
			discount = decimal.Min(discount, *c.MaxDiscountCap)
		}
	}

	return decimal.Min(discount, base).RoundDown(2)
}
