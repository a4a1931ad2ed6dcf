package postgres

import (
	"context"
	"errors"
	"fmt"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) domain.ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	var price pgtype.Numeric
	err := db(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, slug, price, image, stock, sold_count, low_stock_alert,
			is_active, created_at, updated_at
		FROM products WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &p.Slug, &price, &p.Image, &p.Stock, &p.SoldCount,
		&p.LowStockAlert, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("product not found", err)
		}
		return nil, err
	}
	p.Price = NumericToFloat64(price)
	return &p, nil
}

// Reserve decrements stock only when enough remains. The conditional update
// closes the check-then-decrement race: of two concurrent reservations for
// the last units, exactly one sees rows affected.
func (r *productRepository) Reserve(ctx context.Context, item domain.ReservationItem) error {
	cmd, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, sold_count = sold_count + $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, item.ProductID, item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := db(ctx, r.pool).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, item.ProductID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperror.NotFound(fmt.Sprintf("product %s not found", item.ProductID), nil)
		}
		return apperror.Conflict(fmt.Sprintf("insufficient stock for product %s", item.ProductID), nil)
	}
	return nil
}

func (r *productRepository) Release(ctx context.Context, item domain.ReservationItem) error {
	cmd, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE products
		SET stock = stock + $2, sold_count = GREATEST(sold_count - $2, 0), updated_at = now()
		WHERE id = $1`, item.ProductID, item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperror.NotFound(fmt.Sprintf("product %s not found", item.ProductID), nil)
	}
	return nil
}
