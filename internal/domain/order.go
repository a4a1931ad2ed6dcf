package domain

import (
	"context"
	"time"
)

type OrderFilter struct {
	Page        int
	Limit       int
	Status      string
	IsPaid      *bool
	IsDelivered *bool
}

// OrderItem is a denormalized snapshot of product data at order time.
// Later price or name changes never alter historical orders.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
}

// StatusEvent is one row of an order's append-only status history.
type StatusEvent struct {
	Status    string    `json:"status"`
	UpdatedBy *string   `json:"updatedBy,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"orderItems"`
	ShippingAddress JSONB           `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	ItemsPrice      float64         `json:"itemsPrice"`
	TaxPrice        float64         `json:"taxPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	DiscountAmount  float64         `json:"discountAmount"`
	TotalPrice      float64         `json:"totalPrice"`
	CouponApplied   *CouponSnapshot `json:"couponApplied,omitempty"`
	Status          string          `json:"orderStatus"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	PaymentInfo     JSONB           `json:"paymentInfo,omitempty"`
	CancelReason    string          `json:"cancelReason,omitempty"`
	TrackingNumber  string          `json:"trackingNumber,omitempty"`
	StatusHistory   []StatusEvent   `json:"statusHistory"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type OrderRepository interface {
	// Create persists the order and seeds its history with the initial
	// Pending entry.
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByUserID(ctx context.Context, userID string) ([]Order, error)
	GetAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)

	// UpdateStatus moves the order to newStatus. deliveredAt, when non-nil,
	// also flips the delivered pair; tracking, when non-nil, replaces the
	// tracking number.
	UpdateStatus(ctx context.Context, id, newStatus string, tracking *string, deliveredAt *time.Time) error
	MarkPaid(ctx context.Context, id string, paidAt time.Time, info JSONB) error
	Cancel(ctx context.Context, id, reason string) error
	Delete(ctx context.Context, id string) error

	AppendHistory(ctx context.Context, orderID string, event StatusEvent) error
	GetHistory(ctx context.Context, orderID string) ([]StatusEvent, error)
}

// TransactionManager runs fn with all repository calls inside one database
// transaction. fn returning an error rolls everything back.
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
