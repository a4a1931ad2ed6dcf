package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/domain"
	"herbalstore-backend/pkg/cache"

	"github.com/google/uuid"
)

const (
	maxCouponCodeLen = 20
	activeCouponsKey = "coupons:active"
	activeCouponsTTL = 30 * time.Second
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// CouponUsecase handles coupon validation, redemption bookkeeping and admin
// coupon management.
type CouponUsecase struct {
	couponRepo domain.CouponRepository
	userRepo   domain.UserRepository
	orderRepo  domain.OrderRepository
	cache      cache.CacheService
	now        func() time.Time
}

func NewCouponUsecase(couponRepo domain.CouponRepository, userRepo domain.UserRepository, orderRepo domain.OrderRepository, cache cache.CacheService) *CouponUsecase {
	return &CouponUsecase{
		couponRepo: couponRepo,
		userRepo:   userRepo,
		orderRepo:  orderRepo,
		cache:      cache,
		now:        time.Now,
	}
}

// CouponQuote is the result of a successful validation: the discount the
// coupon would yield on the given order amount. Validation never mutates
// usage counters; redemption happens at order creation.
type CouponQuote struct {
	CouponID       uuid.UUID `json:"couponId"`
	Code           string    `json:"code"`
	DiscountType   string    `json:"discountType"`
	DiscountValue  float64   `json:"discountValue"`
	DiscountAmount float64   `json:"discountAmount"`
	FinalAmount    float64   `json:"finalAmount"`
}

// Validate checks a coupon code against the validity window, usage caps and
// eligibility scoping for the given user, and quotes the discount on
// orderAmount. Repeated calls return the same quote.
func (uc *CouponUsecase) Validate(ctx context.Context, code, userID string, orderAmount float64) (*CouponQuote, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperror.Validation("coupon code is required", nil)
	}
	if orderAmount <= 0 {
		return nil, apperror.Validation("order amount must be greater than 0", nil)
	}

	coupon, err := uc.couponRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	if !coupon.IsActive {
		return nil, apperror.Conflict("coupon is not active", nil)
	}
	if now.Before(coupon.StartDate) {
		return nil, apperror.Conflict("coupon is not active yet", nil)
	}
	if now.After(domain.EndOfDay(coupon.ExpiryDate)) {
		return nil, apperror.Conflict("coupon has expired", nil)
	}
	if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
		return nil, apperror.Conflict("coupon usage limit reached", nil)
	}
	if !coupon.CanUserUse(userID) {
		return nil, apperror.Conflict("you have already used this coupon the maximum number of times", nil)
	}
	if orderAmount < coupon.MinOrderAmount {
		return nil, apperror.Conflict(fmt.Sprintf("minimum order amount of %.2f required", coupon.MinOrderAmount), nil)
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := uc.checkEligibility(ctx, coupon, user); err != nil {
		return nil, err
	}

	discount := domain.CalculateDiscount(coupon, orderAmount, now)
	return &CouponQuote{
		CouponID:       coupon.ID,
		Code:           coupon.Code,
		DiscountType:   coupon.DiscountType,
		DiscountValue:  coupon.DiscountValue,
		DiscountAmount: discount,
		FinalAmount:    orderAmount - discount,
	}, nil
}

// checkEligibility applies the coupon's audience scoping to the user. Every
// gate that fails produces a distinct message so the storefront can explain
// the rejection.
func (uc *CouponUsecase) checkEligibility(ctx context.Context, coupon *domain.Coupon, user *domain.User) error {
	if coupon.RequiresStudentVerification && !user.IsVerifiedStudent() {
		return apperror.Conflict("coupon requires a verified student account", nil)
	}
	if len(coupon.AllowedDepartments) > 0 && !containsFold(coupon.AllowedDepartments, user.Department) {
		return apperror.Conflict("coupon is not available for your department", nil)
	}
	if len(coupon.AllowedYears) > 0 && !containsInt(coupon.AllowedYears, user.YearOfStudy) {
		return apperror.Conflict("coupon is not available for your year of study", nil)
	}

	switch coupon.ApplicableFor {
	case domain.ApplicableForAll, "":
		return nil
	case domain.ApplicableForLCITStudents:
		if !user.IsLCITStudent {
			return apperror.Conflict("coupon is only available to LCIT students", nil)
		}
	case domain.ApplicableForFirstTime:
		count, err := uc.orderRepo.CountByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperror.Conflict("coupon is only available on your first order", nil)
		}
	case domain.ApplicableForSpecificUsers:
		if !contains(coupon.AllowedUsers, user.ID) {
			return apperror.Conflict("coupon is not available for your account", nil)
		}
	default:
		return apperror.Conflict("coupon is not available for your account", nil)
	}
	return nil
}

// Redeem commits one usage of the coupon for the user. Callers run it inside
// the order-creation transaction so a failed order never consumes usage.
func (uc *CouponUsecase) Redeem(ctx context.Context, couponID uuid.UUID, userID string) error {
	if err := uc.couponRepo.Redeem(ctx, couponID, userID); err != nil {
		return err
	}
	uc.cache.Delete(activeCouponsKey)
	return nil
}

// AvailableCoupon is the public projection of a coupon shown to shoppers.
// Usage records of other users are never exposed.
type AvailableCoupon struct {
	Code              string    `json:"code"`
	DiscountType      string    `json:"discountType"`
	DiscountValue     float64   `json:"discountValue"`
	MaxDiscountAmount *float64  `json:"maxDiscountAmount,omitempty"`
	MinOrderAmount    float64   `json:"minOrderAmount"`
	ExpiryDate        time.Time `json:"expiryDate"`
}

// Available lists the currently valid coupons the user could redeem right
// now, filtered through the same eligibility gates as Validate.
func (uc *CouponUsecase) Available(ctx context.Context, userID string) ([]AvailableCoupon, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	coupons, err := uc.activeCoupons(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	available := make([]AvailableCoupon, 0, len(coupons))
	for i := range coupons {
		c := &coupons[i]
		if !c.IsValid(now) || !c.CanUserUse(userID) {
			continue
		}
		if uc.checkEligibility(ctx, c, user) != nil {
			continue
		}
		available = append(available, AvailableCoupon{
			Code:              c.Code,
			DiscountType:      c.DiscountType,
			DiscountValue:     c.DiscountValue,
			MaxDiscountAmount: c.MaxDiscountAmount,
			MinOrderAmount:    c.MinOrderAmount,
			ExpiryDate:        c.ExpiryDate,
		})
	}
	return available, nil
}

func (uc *CouponUsecase) activeCoupons(ctx context.Context) ([]domain.Coupon, error) {
	if cached, ok := uc.cache.Get(activeCouponsKey); ok {
		if coupons, ok := cached.([]domain.Coupon); ok {
			return coupons, nil
		}
	}
	coupons, err := uc.couponRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	uc.cache.Set(activeCouponsKey, coupons, activeCouponsTTL)
	return coupons, nil
}

// --- Admin management ---

// CreateCouponRequest represents the input for creating a coupon.
type CreateCouponRequest struct {
	Code                        string   `json:"code"`
	DiscountType                string   `json:"discountType"`
	DiscountValue               float64  `json:"discountValue"`
	MaxDiscountAmount           *float64 `json:"maxDiscountAmount"`
	MinOrderAmount              float64  `json:"minOrderAmount"`
	ApplicableFor               string   `json:"applicableFor"`
	AllowedUsers                []string `json:"allowedUsers"`
	RequiresStudentVerification bool     `json:"requiresStudentVerification"`
	AllowedDepartments          []string `json:"allowedDepartments"`
	AllowedYears                []int    `json:"allowedYears"`
	UsageLimit                  *int     `json:"usageLimit"`
	PerUserLimit                int      `json:"perUserLimit"`
	StartDate                   string   `json:"startDate"` // ISO8601 or YYYY-MM-DD
	ExpiryDate                  string   `json:"expiryDate"`
	IsActive                    bool     `json:"isActive"`
}

func (uc *CouponUsecase) CreateCoupon(ctx context.Context, req CreateCouponRequest) (*domain.Coupon, error) {
	coupon := &domain.Coupon{
		Code:                        strings.ToUpper(strings.TrimSpace(req.Code)),
		DiscountType:                req.DiscountType,
		DiscountValue:               req.DiscountValue,
		MaxDiscountAmount:           req.MaxDiscountAmount,
		MinOrderAmount:              req.MinOrderAmount,
		ApplicableFor:               req.ApplicableFor,
		AllowedUsers:                req.AllowedUsers,
		RequiresStudentVerification: req.RequiresStudentVerification,
		AllowedDepartments:          req.AllowedDepartments,
		AllowedYears:                req.AllowedYears,
		UsageLimit:                  req.UsageLimit,
		PerUserLimit:                req.PerUserLimit,
		IsActive:                    req.IsActive,
	}
	if coupon.ApplicableFor == "" {
		coupon.ApplicableFor = domain.ApplicableForAll
	}
	if coupon.PerUserLimit <= 0 {
		coupon.PerUserLimit = 1
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, apperror.Validation("invalid start date", err)
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		return nil, apperror.Validation("invalid expiry date", err)
	}
	coupon.StartDate = start
	coupon.ExpiryDate = expiry

	if err := validateCoupon(coupon); err != nil {
		return nil, err
	}
	if err := uc.couponRepo.Create(ctx, coupon); err != nil {
		return nil, err
	}
	uc.cache.Delete(activeCouponsKey)
	return coupon, nil
}

// UpdateCouponRequest represents the input for updating a coupon. Nil fields
// are left unchanged.
type UpdateCouponRequest struct {
	DiscountType                *string   `json:"discountType"`
	DiscountValue               *float64  `json:"discountValue"`
	MaxDiscountAmount           *float64  `json:"maxDiscountAmount"`
	MinOrderAmount              *float64  `json:"minOrderAmount"`
	ApplicableFor               *string   `json:"applicableFor"`
	AllowedUsers                *[]string `json:"allowedUsers"`
	RequiresStudentVerification *bool     `json:"requiresStudentVerification"`
	AllowedDepartments          *[]string `json:"allowedDepartments"`
	AllowedYears                *[]int    `json:"allowedYears"`
	UsageLimit                  *int      `json:"usageLimit"`
	PerUserLimit                *int      `json:"perUserLimit"`
	StartDate                   *string   `json:"startDate"`
	ExpiryDate                  *string   `json:"expiryDate"`
	IsActive                    *bool     `json:"isActive"`
}

func (uc *CouponUsecase) UpdateCoupon(ctx context.Context, id string, req UpdateCouponRequest) (*domain.Coupon, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid coupon id", err)
	}
	coupon, err := uc.couponRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	if req.DiscountType != nil {
		coupon.DiscountType = *req.DiscountType
	}
	if req.DiscountValue != nil {
		coupon.DiscountValue = *req.DiscountValue
	}
	if req.MaxDiscountAmount != nil {
		coupon.MaxDiscountAmount = req.MaxDiscountAmount
	}
	if req.MinOrderAmount != nil {
		coupon.MinOrderAmount = *req.MinOrderAmount
	}
	if req.ApplicableFor != nil {
		coupon.ApplicableFor = *req.ApplicableFor
	}
	if req.AllowedUsers != nil {
		coupon.AllowedUsers = *req.AllowedUsers
	}
	if req.RequiresStudentVerification != nil {
		coupon.RequiresStudentVerification = *req.RequiresStudentVerification
	}
	if req.AllowedDepartments != nil {
		coupon.AllowedDepartments = *req.AllowedDepartments
	}
	if req.AllowedYears != nil {
		coupon.AllowedYears = *req.AllowedYears
	}
	if req.UsageLimit != nil {
		coupon.UsageLimit = req.UsageLimit
	}
	if req.PerUserLimit != nil {
		coupon.PerUserLimit = *req.PerUserLimit
	}
	if req.StartDate != nil {
		t, err := parseDate(*req.StartDate)
		if err != nil {
			return nil, apperror.Validation("invalid start date", err)
		}
		coupon.StartDate = t
	}
	if req.ExpiryDate != nil {
		t, err := parseDate(*req.ExpiryDate)
		if err != nil {
			return nil, apperror.Validation("invalid expiry date", err)
		}
		coupon.ExpiryDate = t
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	if err := validateCoupon(coupon); err != nil {
		return nil, err
	}
	if err := uc.couponRepo.Update(ctx, coupon); err != nil {
		return nil, err
	}
	uc.cache.Delete(activeCouponsKey)
	return coupon, nil
}

func (uc *CouponUsecase) GetCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid coupon id", err)
	}
	return uc.couponRepo.GetByID(ctx, uid)
}

func (uc *CouponUsecase) ListCoupons(ctx context.Context, filter domain.CouponFilter) ([]domain.Coupon, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	return uc.couponRepo.List(ctx, filter)
}

func (uc *CouponUsecase) ToggleActive(ctx context.Context, id string) (*domain.Coupon, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid coupon id", err)
	}
	coupon, err := uc.couponRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := uc.couponRepo.SetActive(ctx, uid, !coupon.IsActive); err != nil {
		return nil, err
	}
	coupon.IsActive = !coupon.IsActive
	uc.cache.Delete(activeCouponsKey)
	return coupon, nil
}

func (uc *CouponUsecase) DeleteCoupon(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid coupon id", err)
	}
	if err := uc.couponRepo.Delete(ctx, uid); err != nil {
		return err
	}
	uc.cache.Delete(activeCouponsKey)
	return nil
}

// CouponStats summarizes redemption activity for one coupon.
type CouponStats struct {
	Code          string               `json:"code"`
	UsageCount    int                  `json:"usageCount"`
	UsageLimit    *int                 `json:"usageLimit,omitempty"`
	RemainingUses *int                 `json:"remainingUses,omitempty"`
	UniqueUsers   int                  `json:"uniqueUsers"`
	TotalRedeemed int                  `json:"totalRedeemed"`
	UsedBy        []domain.CouponUsage `json:"usedBy"`
	IsActive      bool                 `json:"isActive"`
	ExpiryDate    time.Time            `json:"expiryDate"`
}

func (uc *CouponUsecase) Stats(ctx context.Context, id string) (*CouponStats, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid coupon id", err)
	}
	coupon, err := uc.couponRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, u := range coupon.UsedBy {
		total += u.UsedCount
	}

	stats := &CouponStats{
		Code:          coupon.Code,
		UsageCount:    coupon.UsageCount,
		UsageLimit:    coupon.UsageLimit,
		UniqueUsers:   len(coupon.UsedBy),
		TotalRedeemed: total,
		UsedBy:        coupon.UsedBy,
		IsActive:      coupon.IsActive,
		ExpiryDate:    coupon.ExpiryDate,
	}
	if coupon.UsageLimit != nil {
		remaining := *coupon.UsageLimit - coupon.UsageCount
		if remaining < 0 {
			remaining = 0
		}
		stats.RemainingUses = &remaining
	}
	return stats, nil
}

// validateCoupon enforces the structural invariants shared by create and
// update.
func validateCoupon(c *domain.Coupon) error {
	if c.Code == "" {
		return apperror.Validation("coupon code is required", nil)
	}
	if len(c.Code) > maxCouponCodeLen {
		return apperror.Validation(fmt.Sprintf("coupon code cannot exceed %d characters", maxCouponCodeLen), nil)
	}
	if c.DiscountType != domain.DiscountTypePercentage && c.DiscountType != domain.DiscountTypeFixed {
		return apperror.Validation("discount type must be 'percentage' or 'fixed'", nil)
	}
	if c.DiscountValue <= 0 {
		return apperror.Validation("discount value must be greater than 0", nil)
	}
	if c.DiscountType == domain.DiscountTypePercentage && c.DiscountValue > 100 {
		return apperror.Validation("percentage discount cannot exceed 100%", nil)
	}
	if c.MaxDiscountAmount != nil && c.DiscountType != domain.DiscountTypePercentage {
		return apperror.Validation("maximum discount amount only applies to percentage coupons", nil)
	}
	if c.MaxDiscountAmount != nil && *c.MaxDiscountAmount <= 0 {
		return apperror.Validation("maximum discount amount must be greater than 0", nil)
	}
	if c.MinOrderAmount < 0 {
		return apperror.Validation("minimum order amount cannot be negative", nil)
	}
	if !contains(domain.CouponScopes, c.ApplicableFor) {
		return apperror.Validation("invalid applicableFor scope", nil)
	}
	if c.ApplicableFor == domain.ApplicableForSpecificUsers && len(c.AllowedUsers) == 0 {
		return apperror.Validation("allowedUsers is required for specific-users coupons", nil)
	}
	if c.UsageLimit != nil && *c.UsageLimit <= 0 {
		return apperror.Validation("usage limit must be greater than 0", nil)
	}
	if !c.ExpiryDate.After(c.StartDate) {
		return apperror.Validation("expiry date must be after start date", nil)
	}
	return nil
}

// parseDate accepts full RFC3339 timestamps or bare YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}
