package usecase

import (
	"context"
	"testing"
	"time"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int       { return &v }
func fPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func studentCoupon() *domain.Coupon {
	return &domain.Coupon{
		ID:            uuid.New(),
		Code:          "SAVE10",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 10,
		ApplicableFor: domain.ApplicableForAll,
		PerUserLimit:  1,
		StartDate:     testNow.AddDate(0, -1, 0),
		ExpiryDate:    testNow.AddDate(0, 1, 0),
		IsActive:      true,
	}
}

func shopper() *domain.User {
	return &domain.User{
		ID:                        "user-1",
		Email:                     "shopper@example.com",
		Role:                      domain.RoleUser,
		StudentVerificationStatus: domain.StudentVerificationNone,
	}
}

func newCouponFixture(coupons []*domain.Coupon, users ...*domain.User) (*CouponUsecase, *fakeCouponRepo, *fakeOrderRepo) {
	couponRepo := newFakeCouponRepo(coupons...)
	orderRepo := newFakeOrderRepo()
	uc := NewCouponUsecase(couponRepo, newFakeUserRepo(users...), orderRepo, newFakeCache())
	uc.now = func() time.Time { return testNow }
	return uc, couponRepo, orderRepo
}

func TestValidateQuotesDiscount(t *testing.T) {
	uc, _, _ := newCouponFixture([]*domain.Coupon{studentCoupon()}, shopper())

	quote, err := uc.Validate(context.Background(), "save10", "user-1", 1000)
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", quote.Code)
	assert.Equal(t, 100.0, quote.DiscountAmount)
	assert.Equal(t, 900.0, quote.FinalAmount)
}

func TestValidateIsIdempotent(t *testing.T) {
	uc, repo, _ := newCouponFixture([]*domain.Coupon{studentCoupon()}, shopper())

	first, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.NoError(t, err)
	second, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, c := range repo.coupons {
		assert.Zero(t, c.UsageCount, "validation must not consume usage")
	}
}

func TestValidateUnknownCode(t *testing.T) {
	uc, _, _ := newCouponFixture(nil, shopper())

	_, err := uc.Validate(context.Background(), "NOPE", "user-1", 100)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestValidateExpiredAfterEndOfDay(t *testing.T) {
	c := studentCoupon()
	c.ExpiryDate = testNow.AddDate(0, 0, -1)
	uc, _, _ := newCouponFixture([]*domain.Coupon{c}, shopper())

	_, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateStillValidOnExpiryDay(t *testing.T) {
	c := studentCoupon()
	c.ExpiryDate = time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)
	uc, _, _ := newCouponFixture([]*domain.Coupon{c}, shopper())

	_, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	assert.NoError(t, err)
}

func TestValidateGlobalLimitReached(t *testing.T) {
	c := studentCoupon()
	c.UsageLimit = intPtr(5)
	c.UsageCount = 5
	uc, _, _ := newCouponFixture([]*domain.Coupon{c}, shopper())

	_, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage limit")
}

func TestValidatePerUserLimitReached(t *testing.T) {
	c := studentCoupon()
	c.UsedBy = []domain.CouponUsage{{UserID: "user-1", UsedCount: 1, LastUsedAt: testNow}}
	uc, _, _ := newCouponFixture([]*domain.Coupon{c}, shopper())

	_, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestValidateMinimumOrderAmount(t *testing.T) {
	c := studentCoupon()
	c.MinOrderAmount = 500
	uc, _, _ := newCouponFixture([]*domain.Coupon{c}, shopper())

	_, err := uc.Validate(context.Background(), "SAVE10", "user-1", 499.99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum order amount")
}

func TestValidateStudentVerificationGate(t *testing.T) {
	c := studentCoupon()
	c.RequiresStudentVerification = true
	user := shopper()
	uc, _, _ := newCouponFixture([]*domain.Coupon{c}, user)

	_, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verified student")

	user.StudentVerificationStatus = domain.StudentVerificationVerified
	_, err = uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	assert.NoError(t, err)
}

func TestValidateDepartmentAndYearGates(t *testing.T) {
	c := studentCoupon()
	c.AllowedDepartments = []string{"CSE", "EEE"}
	c.AllowedYears = []int{1, 2}
	user := shopper()
	user.Department = "BBA"
	user.YearOfStudy = 1
	uc, _, _ := newCouponFixture([]*domain.Coupon{c}, user)

	_, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "department")

	user.Department = "cse" // department match is case-insensitive
	user.YearOfStudy = 4
	_, err = uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "year of study")

	user.YearOfStudy = 2
	_, err = uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	assert.NoError(t, err)
}

func TestValidateLCITStudentScope(t *testing.T) {
	c := studentCoupon()
	c.ApplicableFor = domain.ApplicableForLCITStudents
	user := shopper()
	uc, _, _ := newCouponFixture([]*domain.Coupon{c}, user)

	_, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.Error(t, err)

	user.IsLCITStudent = true
	_, err = uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	assert.NoError(t, err)
}

func TestValidateFirstTimeScope(t *testing.T) {
	c := studentCoupon()
	c.ApplicableFor = domain.ApplicableForFirstTime
	uc, _, orderRepo := newCouponFixture([]*domain.Coupon{c}, shopper())

	_, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	assert.NoError(t, err)

	orderRepo.orderCounts["user-1"] = 1
	_, err = uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first order")
}

func TestValidateSpecificUsersScope(t *testing.T) {
	c := studentCoupon()
	c.ApplicableFor = domain.ApplicableForSpecificUsers
	c.AllowedUsers = []string{"user-2"}
	uc, _, _ := newCouponFixture([]*domain.Coupon{c}, shopper())

	_, err := uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	c.AllowedUsers = []string{"user-1", "user-2"}
	_, err = uc.Validate(context.Background(), "SAVE10", "user-1", 1000)
	assert.NoError(t, err)
}

func TestAvailableFiltersIneligibleCoupons(t *testing.T) {
	eligible := studentCoupon()
	inactive := studentCoupon()
	inactive.ID = uuid.New()
	inactive.Code = "OFF20"
	inactive.IsActive = false
	verifiedOnly := studentCoupon()
	verifiedOnly.ID = uuid.New()
	verifiedOnly.Code = "STUDENT15"
	verifiedOnly.RequiresStudentVerification = true

	uc, _, _ := newCouponFixture([]*domain.Coupon{eligible, inactive, verifiedOnly}, shopper())

	available, err := uc.Available(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "SAVE10", available[0].Code)
}

func TestCreateCouponValidation(t *testing.T) {
	uc, _, _ := newCouponFixture(nil)

	valid := CreateCouponRequest{
		Code:          "welcome5",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: 5,
		StartDate:     "2026-06-01",
		ExpiryDate:    "2026-07-01",
		IsActive:      true,
	}

	tests := []struct {
		name    string
		mutate  func(r *CreateCouponRequest)
		wantErr string
	}{
		{"expiry before start", func(r *CreateCouponRequest) { r.ExpiryDate = "2026-05-01" }, "expiry date must be after start date"},
		{"expiry equals start", func(r *CreateCouponRequest) { r.ExpiryDate = "2026-06-01" }, "expiry date must be after start date"},
		{"percentage above 100", func(r *CreateCouponRequest) {
			r.DiscountType = domain.DiscountTypePercentage
			r.DiscountValue = 150
		}, "cannot exceed 100%"},
		{"zero value", func(r *CreateCouponRequest) { r.DiscountValue = 0 }, "greater than 0"},
		{"code too long", func(r *CreateCouponRequest) { r.Code = "THISCODEISWAYTOOLONGFORACOUPON" }, "cannot exceed 20 characters"},
		{"max discount on fixed", func(r *CreateCouponRequest) { r.MaxDiscountAmount = fPtr(50) }, "percentage coupons"},
		{"bad scope", func(r *CreateCouponRequest) { r.ApplicableFor = "vip" }, "applicableFor"},
		{"specific users without list", func(r *CreateCouponRequest) { r.ApplicableFor = domain.ApplicableForSpecificUsers }, "allowedUsers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := uc.CreateCoupon(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.KindValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	coupon, err := uc.CreateCoupon(context.Background(), valid)
	require.NoError(t, err)
	assert.Equal(t, "WELCOME5", coupon.Code, "codes are stored upper-cased")
	assert.Equal(t, 1, coupon.PerUserLimit, "per-user limit defaults to 1")
}

func TestCreateCouponDuplicateCode(t *testing.T) {
	uc, _, _ := newCouponFixture([]*domain.Coupon{studentCoupon()})

	_, err := uc.CreateCoupon(context.Background(), CreateCouponRequest{
		Code:          "SAVE10",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: 5,
		StartDate:     "2026-06-01",
		ExpiryDate:    "2026-07-01",
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestUpdateCouponPartial(t *testing.T) {
	c := studentCoupon()
	uc, repo, _ := newCouponFixture([]*domain.Coupon{c})

	updated, err := uc.UpdateCoupon(context.Background(), c.ID.String(), UpdateCouponRequest{
		DiscountValue: fPtr(25),
		IsActive:      boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.DiscountValue)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "SAVE10", updated.Code, "untouched fields survive")

	stored := repo.coupons[c.ID]
	assert.Equal(t, 25.0, stored.DiscountValue)
}

func TestUpdateCouponRejectsInvariantBreak(t *testing.T) {
	c := studentCoupon()
	uc, _, _ := newCouponFixture([]*domain.Coupon{c})

	_, err := uc.UpdateCoupon(context.Background(), c.ID.String(), UpdateCouponRequest{
		ExpiryDate: strPtr(c.StartDate.AddDate(0, -1, 0).Format("2006-01-02")),
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestToggleActive(t *testing.T) {
	c := studentCoupon()
	uc, repo, _ := newCouponFixture([]*domain.Coupon{c})

	toggled, err := uc.ToggleActive(context.Background(), c.ID.String())
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	assert.False(t, repo.coupons[c.ID].IsActive)

	toggled, err = uc.ToggleActive(context.Background(), c.ID.String())
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)
}

func TestCouponStats(t *testing.T) {
	c := studentCoupon()
	c.UsageLimit = intPtr(10)
	c.UsageCount = 3
	c.UsedBy = []domain.CouponUsage{
		{UserID: "user-1", UsedCount: 2, LastUsedAt: testNow},
		{UserID: "user-2", UsedCount: 1, LastUsedAt: testNow},
	}
	uc, _, _ := newCouponFixture([]*domain.Coupon{c})

	stats, err := uc.Stats(context.Background(), c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.UsageCount)
	assert.Equal(t, 2, stats.UniqueUsers)
	assert.Equal(t, 3, stats.TotalRedeemed)
	require.NotNil(t, stats.RemainingUses)
	assert.Equal(t, 7, *stats.RemainingUses)
}

func TestDeleteCoupon(t *testing.T) {
	c := studentCoupon()
	uc, repo, _ := newCouponFixture([]*domain.Coupon{c})

	require.NoError(t, uc.DeleteCoupon(context.Background(), c.ID.String()))
	assert.Empty(t, repo.coupons)

	err := uc.DeleteCoupon(context.Background(), c.ID.String())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
