package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) domain.OrderRepository {
	return &orderRepository{pool: pool}
}

const orderColumns = `id, user_id, items, shipping_address, payment_method,
	items_price, tax_price, shipping_price, discount_amount, total_price,
	coupon_applied, status, is_paid, paid_at, is_delivered, delivered_at,
	payment_info, cancel_reason, tracking_number, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	address, _ := json.Marshal(o.ShippingAddress)

	var couponApplied []byte
	if o.CouponApplied != nil {
		couponApplied, _ = json.Marshal(o.CouponApplied)
	}

	query := `
		INSERT INTO orders (id, user_id, items, shipping_address, payment_method,
			items_price, tax_price, shipping_price, discount_amount, total_price,
			coupon_applied, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	err = db(ctx, r.pool).QueryRow(ctx, query,
		o.ID, o.UserID, items, address, o.PaymentMethod,
		mustNumeric(o.ItemsPrice), mustNumeric(o.TaxPrice), mustNumeric(o.ShippingPrice),
		mustNumeric(o.DiscountAmount), mustNumeric(o.TotalPrice),
		couponApplied, o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	// Seed the history with the initial entry.
	seed := domain.StatusEvent{Status: o.Status, Timestamp: o.CreatedAt}
	if len(o.StatusHistory) > 0 {
		seed = o.StatusHistory[0]
	}
	if err := r.AppendHistory(ctx, o.ID, seed); err != nil {
		return err
	}
	o.StatusHistory = []domain.StatusEvent{seed}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)
	o, err := scanOrder(db(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("order not found", err)
		}
		return nil, err
	}

	history, err := r.GetHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	o.StatusHistory = history
	return o, nil
}

func (r *orderRepository) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)
	rows, err := db(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) GetAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	where := "WHERE 1=1"
	var filterArgs []any
	idx := 1
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		filterArgs = append(filterArgs, filter.Status)
		idx++
	}
	if filter.IsPaid != nil {
		where += fmt.Sprintf(" AND is_paid = $%d", idx)
		filterArgs = append(filterArgs, *filter.IsPaid)
		idx++
	}
	if filter.IsDelivered != nil {
		where += fmt.Sprintf(" AND is_delivered = $%d", idx)
		filterArgs = append(filterArgs, *filter.IsDelivered)
		idx++
	}

	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, idx, idx+1)
	rows, err := db(ctx, r.pool).Query(ctx, query, append(filterArgs, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", where)
	var total int64
	if err := db(ctx, r.pool).QueryRow(ctx, countQuery, filterArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := db(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id, newStatus string, tracking *string, deliveredAt *time.Time) error {
	query := `
		UPDATE orders
		SET status = $2,
			tracking_number = COALESCE($3, tracking_number),
			is_delivered = CASE WHEN $4::timestamptz IS NOT NULL THEN true ELSE is_delivered END,
			delivered_at = COALESCE($4, delivered_at),
			updated_at = now()
		WHERE id = $1
	`
	cmd, err := db(ctx, r.pool).Exec(ctx, query, id, newStatus, tracking, toPgTime(deliveredAt))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperror.NotFound("order not found", nil)
	}
	return nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time, info domain.JSONB) error {
	payment, _ := json.Marshal(info)
	cmd, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE orders
		SET is_paid = true, paid_at = $2, payment_info = $3, updated_at = now()
		WHERE id = $1`, id, paidAt, payment)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperror.NotFound("order not found", nil)
	}
	return nil
}

func (r *orderRepository) Cancel(ctx context.Context, id, reason string) error {
	cmd, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE orders
		SET status = $2, cancel_reason = $3, updated_at = now()
		WHERE id = $1`, id, domain.OrderStatusCancelled, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperror.NotFound("order not found", nil)
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	cmd, err := db(ctx, r.pool).Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperror.NotFound("order not found", nil)
	}
	return nil
}

func (r *orderRepository) AppendHistory(ctx context.Context, orderID string, event domain.StatusEvent) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO order_status_history (order_id, status, updated_by, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		orderID, event.Status, event.UpdatedBy, event.Comment, ts)
	if err != nil {
		return fmt.Errorf("failed to record order history: %w", err)
	}
	return nil
}

func (r *orderRepository) GetHistory(ctx context.Context, orderID string) ([]domain.StatusEvent, error) {
	rows, err := db(ctx, r.pool).Query(ctx, `
		SELECT status, updated_by, comment, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.StatusEvent
	for rows.Next() {
		var e domain.StatusEvent
		if err := rows.Scan(&e.Status, &e.UpdatedBy, &e.Comment, &e.Timestamp); err != nil {
			return nil, err
		}
		history = append(history, e)
	}
	return history, rows.Err()
}

// --- Scanning ---

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var items, address, couponApplied, paymentInfo []byte
	var itemsPrice, taxPrice, shippingPrice, discountAmount, totalPrice pgtype.Numeric
	var paidAt, deliveredAt pgtype.Timestamptz
	var cancelReason, trackingNumber *string

	err := row.Scan(
		&o.ID, &o.UserID, &items, &address, &o.PaymentMethod,
		&itemsPrice, &taxPrice, &shippingPrice, &discountAmount, &totalPrice,
		&couponApplied, &o.Status, &o.IsPaid, &paidAt, &o.IsDelivered, &deliveredAt,
		&paymentInfo, &cancelReason, &trackingNumber, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(items) > 0 {
		json.Unmarshal(items, &o.Items)
	}
	if len(address) > 0 {
		json.Unmarshal(address, &o.ShippingAddress)
	}
	if len(couponApplied) > 0 {
		var snap domain.CouponSnapshot
		if json.Unmarshal(couponApplied, &snap) == nil {
			o.CouponApplied = &snap
		}
	}
	if len(paymentInfo) > 0 {
		json.Unmarshal(paymentInfo, &o.PaymentInfo)
	}

	o.ItemsPrice = NumericToFloat64(itemsPrice)
	o.TaxPrice = NumericToFloat64(taxPrice)
	o.ShippingPrice = NumericToFloat64(shippingPrice)
	o.DiscountAmount = NumericToFloat64(discountAmount)
	o.TotalPrice = NumericToFloat64(totalPrice)
	o.PaidAt = toTimePtr(paidAt)
	o.DeliveredAt = toTimePtr(deliveredAt)
	if cancelReason != nil {
		o.CancelReason = *cancelReason
	}
	if trackingNumber != nil {
		o.TrackingNumber = *trackingNumber
	}
	return &o, nil
}
