package domain

import (
	"context"
	"time"
)

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Price         float64   `json:"price"`
	Image         string    `json:"image"`
	Stock         int       `json:"stock"`
	SoldCount     int       `json:"soldCount"`
	LowStockAlert int       `json:"lowStockAlert"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IsLowStock reports whether available stock has fallen to the alert
// threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.LowStockAlert
}

// ReservationItem is one line of a stock reservation or release.
type ReservationItem struct {
	ProductID string
	Quantity  int
}

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*Product, error)

	// Reserve decrements stock and increments soldCount, guarded by a
	// conditional update that fails when remaining stock is insufficient.
	// Callers run it inside a transaction so multi-item reservations are
	// all-or-nothing.
	Reserve(ctx context.Context, item ReservationItem) error

	// Release is the inverse of Reserve, used on cancellation.
	Release(ctx context.Context, item ReservationItem) error
}
