package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Coupon is a discount rule identified by a code, with a validity window,
// usage caps, and eligibility predicates.
type Coupon struct {
	ID                          uuid.UUID     `json:"id"`
	Code                        string        `json:"code"`
	DiscountType                string        `json:"discountType"` // percentage, fixed
	DiscountValue               float64       `json:"discountValue"`
	MaxDiscountAmount           *float64      `json:"maxDiscountAmount,omitempty"` // percentage only
	MinOrderAmount              float64       `json:"minOrderAmount"`
	ApplicableFor               string        `json:"applicableFor"`
	AllowedUsers                []string      `json:"allowedUsers,omitempty"` // specific-users scope
	RequiresStudentVerification bool          `json:"requiresStudentVerification"`
	AllowedDepartments          []string      `json:"allowedDepartments,omitempty"` // empty = unrestricted
	AllowedYears                []int         `json:"allowedYears,omitempty"`       // empty = unrestricted
	UsageLimit                  *int          `json:"usageLimit,omitempty"`         // nil = unlimited
	UsageCount                  int           `json:"usageCount"`
	PerUserLimit                int           `json:"perUserLimit"`
	UsedBy                      []CouponUsage `json:"usedBy,omitempty"`
	StartDate                   time.Time     `json:"startDate"`
	ExpiryDate                  time.Time     `json:"expiryDate"` // date-only, expires end-of-day
	IsActive                    bool          `json:"isActive"`
	CreatedAt                   time.Time     `json:"createdAt"`
	UpdatedAt                   time.Time     `json:"updatedAt"`
}

// CouponUsage is one per-user redemption record.
type CouponUsage struct {
	UserID     string    `json:"userId"`
	UsedCount  int       `json:"usedCount"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

// CouponSnapshot is the denormalized coupon data captured on an order at
// redemption time. It survives coupon edits and deletion.
type CouponSnapshot struct {
	CouponID      uuid.UUID `json:"couponId"`
	Code          string    `json:"code"`
	DiscountValue float64   `json:"discountValue"`
	DiscountType  string    `json:"discountType"`
}

// EndOfDay returns the last representable instant of t's calendar day.
// Expiry dates are date-only: a coupon expiring 2026-01-31 is usable through
// 23:59:59.999 of that day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999_000_000, t.Location())
}

// IsValid reports whether the coupon is redeemable at the given instant,
// ignoring per-user limits and eligibility scoping.
func (c *Coupon) IsValid(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.StartDate) {
		return false
	}
	if now.After(EndOfDay(c.ExpiryDate)) {
		return false
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return false
	}
	return true
}

// UsageFor returns the usage record for a user, or nil if they have never
// redeemed this coupon.
func (c *Coupon) UsageFor(userID string) *CouponUsage {
	for i := range c.UsedBy {
		if c.UsedBy[i].UserID == userID {
			return &c.UsedBy[i]
		}
	}
	return nil
}

// CanUserUse reports whether the user is under the per-user redemption cap.
func (c *Coupon) CanUserUse(userID string) bool {
	limit := c.PerUserLimit
	if limit <= 0 {
		limit = 1
	}
	u := c.UsageFor(userID)
	return u == nil || u.UsedCount < limit
}

type CouponFilter struct {
	Page     int
	Limit    int
	IsActive *bool
}

type CouponRepository interface {
	Create(ctx context.Context, coupon *Coupon) error
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	List(ctx context.Context, filter CouponFilter) ([]Coupon, int64, error)
	ListActive(ctx context.Context) ([]Coupon, error)
	Update(ctx context.Context, coupon *Coupon) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Redeem commits one usage for (coupon, user): bumps the global counter
	// and upserts the per-user record in a single guarded statement. Returns
	// a conflict error if either the global or per-user limit would be
	// exceeded at write time.
	Redeem(ctx context.Context, couponID uuid.UUID, userID string) error
}
