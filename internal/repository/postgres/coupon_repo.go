package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type couponRepository struct {
	pool *pgxpool.Pool
}

func NewCouponRepository(pool *pgxpool.Pool) domain.CouponRepository {
	return &couponRepository{pool: pool}
}

const couponColumns = `id, code, discount_type, discount_value, max_discount_amount,
	min_order_amount, applicable_for, allowed_users, requires_student_verification,
	allowed_departments, allowed_years, usage_limit, usage_count, per_user_limit,
	start_date, expiry_date, is_active, created_at, updated_at`

func (r *couponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	allowedUsers, _ := json.Marshal(c.AllowedUsers)
	allowedDepartments, _ := json.Marshal(c.AllowedDepartments)
	allowedYears, _ := json.Marshal(c.AllowedYears)

	var maxDiscount pgtype.Numeric
	if c.MaxDiscountAmount != nil {
		maxDiscount = mustNumeric(*c.MaxDiscountAmount)
	}

	query := `
		INSERT INTO coupons (code, discount_type, discount_value, max_discount_amount,
			min_order_amount, applicable_for, allowed_users, requires_student_verification,
			allowed_departments, allowed_years, usage_limit, per_user_limit,
			start_date, expiry_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	err := db(ctx, r.pool).QueryRow(ctx, query,
		strings.ToUpper(c.Code), c.DiscountType, mustNumeric(c.DiscountValue), maxDiscount,
		mustNumeric(c.MinOrderAmount), c.ApplicableFor, allowedUsers, c.RequiresStudentVerification,
		allowedDepartments, allowedYears, c.UsageLimit, c.PerUserLimit,
		c.StartDate, c.ExpiryDate, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("coupon code '%s' already exists", c.Code), err)
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := fmt.Sprintf(`SELECT %s FROM coupons WHERE code = $1`, couponColumns)
	row := db(ctx, r.pool).QueryRow(ctx, query, strings.ToUpper(code))
	return r.scanWithUsages(ctx, row)
}

func (r *couponRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	query := fmt.Sprintf(`SELECT %s FROM coupons WHERE id = $1`, couponColumns)
	row := db(ctx, r.pool).QueryRow(ctx, query, id)
	return r.scanWithUsages(ctx, row)
}

func (r *couponRepository) List(ctx context.Context, filter domain.CouponFilter) ([]domain.Coupon, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	where := ""
	args := []any{limit, offset}
	if filter.IsActive != nil {
		where = "WHERE is_active = $3"
		args = append(args, *filter.IsActive)
	}

	query := fmt.Sprintf(`SELECT %s FROM coupons %s ORDER BY created_at DESC LIMIT $1 OFFSET $2`, couponColumns, where)
	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, 0, err
		}
		coupons = append(coupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := "SELECT COUNT(*) FROM coupons"
	countArgs := []any{}
	if filter.IsActive != nil {
		countQuery += " WHERE is_active = $1"
		countArgs = append(countArgs, *filter.IsActive)
	}
	var total int64
	if err := db(ctx, r.pool).QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return coupons, total, nil
}

func (r *couponRepository) ListActive(ctx context.Context) ([]domain.Coupon, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM coupons
		WHERE is_active = true
		  AND start_date <= now()
		  AND expiry_date + interval '1 day' > now()
		ORDER BY created_at DESC`, couponColumns)

	rows, err := db(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []domain.Coupon
	var ids []uuid.UUID
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Attach per-user usage so eligibility checks can run without N extra queries.
	if len(ids) > 0 {
		usageRows, err := db(ctx, r.pool).Query(ctx, `
			SELECT coupon_id, user_id, used_count, last_used_at
			FROM coupon_usages WHERE coupon_id = ANY($1)`, ids)
		if err != nil {
			return nil, err
		}
		defer usageRows.Close()

		byCoupon := make(map[uuid.UUID][]domain.CouponUsage)
		for usageRows.Next() {
			var cid uuid.UUID
			var u domain.CouponUsage
			if err := usageRows.Scan(&cid, &u.UserID, &u.UsedCount, &u.LastUsedAt); err != nil {
				return nil, err
			}
			byCoupon[cid] = append(byCoupon[cid], u)
		}
		if err := usageRows.Err(); err != nil {
			return nil, err
		}
		for i := range coupons {
			coupons[i].UsedBy = byCoupon[coupons[i].ID]
		}
	}

	return coupons, nil
}

func (r *couponRepository) Update(ctx context.Context, c *domain.Coupon) error {
	allowedUsers, _ := json.Marshal(c.AllowedUsers)
	allowedDepartments, _ := json.Marshal(c.AllowedDepartments)
	allowedYears, _ := json.Marshal(c.AllowedYears)

	var maxDiscount pgtype.Numeric
	if c.MaxDiscountAmount != nil {
		maxDiscount = mustNumeric(*c.MaxDiscountAmount)
	}

	query := `
		UPDATE coupons
		SET code = $2, discount_type = $3, discount_value = $4, max_discount_amount = $5,
			min_order_amount = $6, applicable_for = $7, allowed_users = $8,
			requires_student_verification = $9, allowed_departments = $10, allowed_years = $11,
			usage_limit = $12, per_user_limit = $13, start_date = $14, expiry_date = $15,
			is_active = $16, updated_at = now()
		WHERE id = $1
	`
	cmd, err := db(ctx, r.pool).Exec(ctx, query,
		c.ID, strings.ToUpper(c.Code), c.DiscountType, mustNumeric(c.DiscountValue), maxDiscount,
		mustNumeric(c.MinOrderAmount), c.ApplicableFor, allowedUsers,
		c.RequiresStudentVerification, allowedDepartments, allowedYears,
		c.UsageLimit, c.PerUserLimit, c.StartDate, c.ExpiryDate, c.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("coupon code '%s' already exists", c.Code), err)
		}
		return fmt.Errorf("failed to update coupon: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperror.NotFound("coupon not found", nil)
	}
	return nil
}

func (r *couponRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	cmd, err := db(ctx, r.pool).Exec(ctx,
		`UPDATE coupons SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperror.NotFound("coupon not found", nil)
	}
	return nil
}

func (r *couponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperror.NotFound("coupon not found", nil)
	}
	return nil
}

// Redeem bumps the global usage counter and upserts the per-user record in a
// single statement. Both limit guards are re-checked at write time, so
// concurrent redemptions against the same coupon serialize on its row and
// cannot exceed usageLimit or perUserLimit.
func (r *couponRepository) Redeem(ctx context.Context, couponID uuid.UUID, userID string) error {
	query := `
		WITH bumped AS (
			UPDATE coupons
			SET usage_count = usage_count + 1, updated_at = now()
			WHERE id = $1
			  AND (usage_limit IS NULL OR usage_count < usage_limit)
			RETURNING id, per_user_limit
		)
		INSERT INTO coupon_usages (coupon_id, user_id, used_count, last_used_at)
		SELECT id, $2, 1, now() FROM bumped
		ON CONFLICT (coupon_id, user_id) DO UPDATE
			SET used_count = coupon_usages.used_count + 1, last_used_at = now()
			WHERE coupon_usages.used_count < (SELECT per_user_limit FROM bumped)
	`
	cmd, err := db(ctx, r.pool).Exec(ctx, query, couponID, userID)
	if err != nil {
		return fmt.Errorf("failed to redeem coupon: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperror.Conflict("coupon usage limit reached", nil)
	}
	return nil
}

// --- Scanning helpers ---

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var c domain.Coupon
	var discountValue, minOrder pgtype.Numeric
	var maxDiscount pgtype.Numeric
	var allowedUsers, allowedDepartments, allowedYears []byte

	err := row.Scan(
		&c.ID, &c.Code, &c.DiscountType, &discountValue, &maxDiscount,
		&minOrder, &c.ApplicableFor, &allowedUsers, &c.RequiresStudentVerification,
		&allowedDepartments, &allowedYears, &c.UsageLimit, &c.UsageCount, &c.PerUserLimit,
		&c.StartDate, &c.ExpiryDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.DiscountValue = NumericToFloat64(discountValue)
	c.MinOrderAmount = NumericToFloat64(minOrder)
	if maxDiscount.Valid {
		v := NumericToFloat64(maxDiscount)
		c.MaxDiscountAmount = &v
	}
	if len(allowedUsers) > 0 {
		json.Unmarshal(allowedUsers, &c.AllowedUsers)
	}
	if len(allowedDepartments) > 0 {
		json.Unmarshal(allowedDepartments, &c.AllowedDepartments)
	}
	if len(allowedYears) > 0 {
		json.Unmarshal(allowedYears, &c.AllowedYears)
	}
	return &c, nil
}

func (r *couponRepository) scanWithUsages(ctx context.Context, row pgx.Row) (*domain.Coupon, error) {
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("coupon not found", err)
		}
		return nil, err
	}

	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT user_id, used_count, last_used_at
		FROM coupon_usages WHERE coupon_id = $1`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.CouponUsage
		if err := rows.Scan(&u.UserID, &u.UsedCount, &u.LastUsedAt); err != nil {
			return nil, err
		}
		c.UsedBy = append(c.UsedBy, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
