package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int       { return &v }
func fPtr(v float64) *float64 { return &v }

func validCoupon() *Coupon {
	return &Coupon{
		Code:          "SAVE10",
		DiscountType:  DiscountTypePercentage,
		DiscountValue: 10,
		PerUserLimit:  1,
		StartDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
}

var midYear = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func TestCoupon_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Coupon)
		now    time.Time
		want   bool
	}{
		{name: "active within window", now: midYear, want: true},
		{name: "inactive", mutate: func(c *Coupon) { c.IsActive = false }, now: midYear, want: false},
		{name: "before start", now: time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), want: false},
		{name: "expiry day still valid", now: time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC), want: true},
		{name: "after end of expiry day", now: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), want: false},
		{
			name:   "global limit reached",
			mutate: func(c *Coupon) { c.UsageLimit = intPtr(5); c.UsageCount = 5 },
			now:    midYear,
			want:   false,
		},
		{
			name:   "under global limit",
			mutate: func(c *Coupon) { c.UsageLimit = intPtr(5); c.UsageCount = 4 },
			now:    midYear,
			want:   true,
		},
		{
			name:   "nil limit never exhausts",
			mutate: func(c *Coupon) { c.UsageCount = 100000 },
			now:    midYear,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon()
			if tt.mutate != nil {
				tt.mutate(c)
			}
			assert.Equal(t, tt.want, c.IsValid(tt.now))
		})
	}
}

func TestCoupon_CanUserUse(t *testing.T) {
	c := validCoupon()
	c.PerUserLimit = 2
	c.UsedBy = []CouponUsage{
		{UserID: "u1", UsedCount: 2},
		{UserID: "u2", UsedCount: 1},
	}

	assert.False(t, c.CanUserUse("u1"))
	assert.True(t, c.CanUserUse("u2"))
	assert.True(t, c.CanUserUse("fresh"))
}

func TestCoupon_CanUserUse_DefaultLimit(t *testing.T) {
	// PerUserLimit of zero falls back to the default of one use.
	c := validCoupon()
	c.PerUserLimit = 0
	c.UsedBy = []CouponUsage{{UserID: "u1", UsedCount: 1}}

	assert.False(t, c.CanUserUse("u1"))
	assert.True(t, c.CanUserUse("u2"))
}

func TestCalculateDiscount_Percentage(t *testing.T) {
	c := validCoupon()
	c.MinOrderAmount = 500

	// SAVE10 at 10% of 1000 with min spend 500.
	assert.Equal(t, 100.0, CalculateDiscount(c, 1000, midYear))

	// Below the minimum yields nothing.
	assert.Equal(t, 0.0, CalculateDiscount(c, 499, midYear))

	// Cap applies to percentage coupons.
	c.MaxDiscountAmount = fPtr(60)
	assert.Equal(t, 60.0, CalculateDiscount(c, 1000, midYear))
}

func TestCalculateDiscount_FixedCappedAtOrderAmount(t *testing.T) {
	c := validCoupon()
	c.DiscountType = DiscountTypeFixed
	c.DiscountValue = 50

	assert.Equal(t, 30.0, CalculateDiscount(c, 30, midYear))
	assert.Equal(t, 50.0, CalculateDiscount(c, 200, midYear))
}

func TestCalculateDiscount_InvalidCouponYieldsZero(t *testing.T) {
	c := validCoupon()
	c.IsActive = false
	assert.Equal(t, 0.0, CalculateDiscount(c, 1000, midYear))

	c = validCoupon()
	c.DiscountType = "bogus"
	assert.Equal(t, 0.0, CalculateDiscount(c, 1000, midYear))
}

func TestEndOfDay(t *testing.T) {
	d := time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)
	eod := EndOfDay(d)
	assert.Equal(t, 23, eod.Hour())
	assert.Equal(t, 59, eod.Minute())
	assert.Equal(t, d.Day(), eod.Day())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(OrderStatusPending, OrderStatusProcessing))
	assert.True(t, CanTransition(OrderStatusProcessing, OrderStatusCancelled))
	assert.True(t, CanTransition(OrderStatusShipped, OrderStatusOutForDelivery))
	assert.True(t, CanTransition(OrderStatusOutForDelivery, OrderStatusDelivered))
	assert.True(t, CanTransition(OrderStatusDelivered, OrderStatusReturned))

	assert.False(t, CanTransition(OrderStatusShipped, OrderStatusCancelled))
	assert.False(t, CanTransition(OrderStatusDelivered, OrderStatusPending))
	assert.False(t, CanTransition(OrderStatusCancelled, OrderStatusProcessing))
	assert.False(t, CanTransition(OrderStatusReturned, OrderStatusDelivered))
}
