package domain

import "time"

// CalculateDiscount computes the discount a coupon yields on an order amount.
// Returns 0 for coupons that are not valid at the given instant or when the
// amount is below the coupon's minimum. The result never exceeds orderAmount,
// so totals cannot go negative.
func CalculateDiscount(c *Coupon, orderAmount float64, now time.Time) float64 {
	if !c.IsValid(now) {
		return 0
	}
	if orderAmount < c.MinOrderAmount {
		return 0
	}

	var discount float64
	switch c.DiscountType {
	case DiscountTypePercentage:
		discount = orderAmount * c.DiscountValue / 100
		if c.MaxDiscountAmount != nil && discount > *c.MaxDiscountAmount {
			discount = *c.MaxDiscountAmount
		}
	case DiscountTypeFixed:
		discount = c.DiscountValue
	default:
		return 0
	}

	if discount > orderAmount {
		discount = orderAmount
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
