package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/domain"
	"herbalstore-backend/internal/infrastructure/events"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderUsecase drives the order lifecycle: creation with stock reservation
// and coupon redemption, payment marking, status progression and
// cancellation.
type OrderUsecase struct {
	orderRepo   domain.OrderRepository
	productRepo domain.ProductRepository
	couponUC    *CouponUsecase
	txManager   domain.TransactionManager
	events      events.Publisher
	log         *zerolog.Logger
	now         func() time.Time
}

func NewOrderUsecase(orderRepo domain.OrderRepository, productRepo domain.ProductRepository, couponUC *CouponUsecase, txManager domain.TransactionManager, publisher events.Publisher, log *zerolog.Logger) *OrderUsecase {
	return &OrderUsecase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		couponUC:    couponUC,
		txManager:   txManager,
		events:      publisher,
		log:         log,
		now:         time.Now,
	}
}

// CreateOrderRequest represents the input for placing an order. Prices are
// client-computed line totals; the discount is always recomputed server-side
// from the coupon.
type CreateOrderRequest struct {
	Items           []domain.OrderItem `json:"orderItems"`
	ShippingAddress domain.JSONB       `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	ItemsPrice      float64            `json:"itemsPrice"`
	TaxPrice        float64            `json:"taxPrice"`
	ShippingPrice   float64            `json:"shippingPrice"`
	TotalPrice      float64            `json:"totalPrice"`
	CouponCode      string             `json:"couponCode"`
}

// Create places an order. Stock reservation, order persistence and coupon
// redemption all happen inside one transaction, so a failure at any point
// (including insufficient stock on the last item) leaves no trace.
func (uc *OrderUsecase) Create(ctx context.Context, user *domain.User, req CreateOrderRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperror.Validation("order must contain at least one item", nil)
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return nil, apperror.Validation("order item is missing a product id", nil)
		}
		if item.Quantity < 1 {
			return nil, apperror.Validation(fmt.Sprintf("invalid quantity for product %s", item.ProductID), nil)
		}
	}
	if req.PaymentMethod == "" {
		return nil, apperror.Validation("payment method is required", nil)
	}

	var quote *CouponQuote
	var snapshot *domain.CouponSnapshot
	if req.CouponCode != "" {
		q, err := uc.couponUC.Validate(ctx, req.CouponCode, user.ID, req.ItemsPrice)
		if err != nil {
			return nil, err
		}
		quote = q
		snapshot = &domain.CouponSnapshot{
			CouponID:      q.CouponID,
			Code:          q.Code,
			DiscountValue: q.DiscountValue,
			DiscountType:  q.DiscountType,
		}
	}

	discount := 0.0
	if quote != nil {
		discount = quote.DiscountAmount
	}

	now := uc.now()
	order := &domain.Order{
		ID:              uuid.New().String(),
		UserID:          user.ID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      req.ItemsPrice,
		TaxPrice:        req.TaxPrice,
		ShippingPrice:   req.ShippingPrice,
		DiscountAmount:  discount,
		TotalPrice:      roundMoney(req.TotalPrice - discount),
		CouponApplied:   snapshot,
		Status:          domain.OrderStatusPending,
		StatusHistory: []domain.StatusEvent{{
			Status:    domain.OrderStatusPending,
			UpdatedBy: &user.ID,
			Timestamp: now,
		}},
	}
	if order.TotalPrice < 0 {
		order.TotalPrice = 0
	}

	err := uc.txManager.Do(ctx, func(ctx context.Context) error {
		for _, item := range req.Items {
			if err := uc.productRepo.Reserve(ctx, domain.ReservationItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			}); err != nil {
				return err
			}
		}
		if err := uc.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		if quote != nil {
			return uc.couponUC.Redeem(ctx, quote.CouponID, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if pubErr := uc.events.OrderCreated(order); pubErr != nil {
		uc.log.Error().Err(pubErr).Str("order_id", order.ID).Msg("failed to publish order created event")
	}
	return order, nil
}

// GetOrder returns an order. Non-staff callers can only see their own.
func (uc *OrderUsecase) GetOrder(ctx context.Context, id string, actor *domain.User) (*domain.Order, error) {
	order, err := uc.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID && !actor.IsStaff() {
		return nil, apperror.Forbidden("you are not allowed to view this order", nil)
	}
	return order, nil
}

// GetInvoice returns the order for invoice rendering. Invoices exist only for
// delivered orders.
func (uc *OrderUsecase) GetInvoice(ctx context.Context, id string, actor *domain.User) (*domain.Order, error) {
	order, err := uc.GetOrder(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !order.IsDelivered {
		return nil, apperror.Conflict("invoice is only available after delivery", nil)
	}
	return order, nil
}

func (uc *OrderUsecase) GetMyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return uc.orderRepo.GetByUserID(ctx, userID)
}

func (uc *OrderUsecase) GetAllOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	if filter.Status != "" && !contains(domain.OrderStatuses, filter.Status) {
		return nil, 0, apperror.Validation("unknown order status", nil)
	}
	return uc.orderRepo.GetAll(ctx, filter)
}

// MarkPaid records a successful payment against the order. Marking an
// already-paid order again is rejected.
func (uc *OrderUsecase) MarkPaid(ctx context.Context, id string, actor *domain.User, info domain.JSONB) (*domain.Order, error) {
	order, err := uc.GetOrder(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, apperror.Conflict("order is already paid", nil)
	}

	paidAt := uc.now()
	if err := uc.orderRepo.MarkPaid(ctx, id, paidAt, info); err != nil {
		return nil, err
	}
	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentInfo = info
	return order, nil
}

// UpdateStatusRequest represents a staff status change.
type UpdateStatusRequest struct {
	Status         string  `json:"status"`
	Comment        *string `json:"comment"`
	TrackingNumber *string `json:"trackingNumber"`
}

// UpdateStatus moves an order along the lifecycle. Moves not listed in the
// transition table are rejected, and each accepted move appends exactly one
// history entry.
func (uc *OrderUsecase) UpdateStatus(ctx context.Context, id string, actor *domain.User, req UpdateStatusRequest) (*domain.Order, error) {
	if !contains(domain.OrderStatuses, req.Status) {
		return nil, apperror.Validation("unknown order status", nil)
	}

	order, err := uc.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := order.Status
	if !domain.CanTransition(oldStatus, req.Status) {
		return nil, apperror.Conflict(fmt.Sprintf("cannot move order from %s to %s", oldStatus, req.Status), nil)
	}

	now := uc.now()
	var deliveredAt *time.Time
	if req.Status == domain.OrderStatusDelivered {
		deliveredAt = &now
	}

	event := domain.StatusEvent{
		Status:    req.Status,
		UpdatedBy: &actor.ID,
		Comment:   req.Comment,
		Timestamp: now,
	}
	err = uc.txManager.Do(ctx, func(ctx context.Context) error {
		if err := uc.orderRepo.UpdateStatus(ctx, id, req.Status, req.TrackingNumber, deliveredAt); err != nil {
			return err
		}
		return uc.orderRepo.AppendHistory(ctx, id, event)
	})
	if err != nil {
		return nil, err
	}

	if pubErr := uc.events.OrderStatusChanged(id, oldStatus, req.Status, &actor.ID); pubErr != nil {
		uc.log.Error().Err(pubErr).Str("order_id", id).Msg("failed to publish status change event")
	}

	order.Status = req.Status
	order.StatusHistory = append(order.StatusHistory, event)
	if req.TrackingNumber != nil {
		order.TrackingNumber = *req.TrackingNumber
	}
	if deliveredAt != nil {
		order.IsDelivered = true
		order.DeliveredAt = deliveredAt
	}
	return order, nil
}

// Cancel cancels a Pending or Processing order and releases its stock.
// Coupon usage is deliberately not refunded; redeemed usage stays consumed.
func (uc *OrderUsecase) Cancel(ctx context.Context, id string, actor *domain.User, reason string) (*domain.Order, error) {
	order, err := uc.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID && !actor.IsStaff() {
		return nil, apperror.Forbidden("you are not allowed to cancel this order", nil)
	}
	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusProcessing {
		return nil, apperror.Conflict(fmt.Sprintf("order in status %s can no longer be cancelled", order.Status), nil)
	}
	if reason == "" {
		reason = "cancelled by user"
	}

	now := uc.now()
	event := domain.StatusEvent{
		Status:    domain.OrderStatusCancelled,
		UpdatedBy: &actor.ID,
		Comment:   &reason,
		Timestamp: now,
	}
	err = uc.txManager.Do(ctx, func(ctx context.Context) error {
		if err := uc.orderRepo.Cancel(ctx, id, reason); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := uc.productRepo.Release(ctx, domain.ReservationItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			}); err != nil {
				return err
			}
		}
		return uc.orderRepo.AppendHistory(ctx, id, event)
	})
	if err != nil {
		return nil, err
	}

	if pubErr := uc.events.OrderCancelled(id, reason); pubErr != nil {
		uc.log.Error().Err(pubErr).Str("order_id", id).Msg("failed to publish cancellation event")
	}

	order.Status = domain.OrderStatusCancelled
	order.CancelReason = reason
	order.StatusHistory = append(order.StatusHistory, event)
	return order, nil
}

// Delete permanently removes an order and its history. It is an
// administrative purge: no stock or coupon compensation happens.
func (uc *OrderUsecase) Delete(ctx context.Context, id string) error {
	return uc.orderRepo.Delete(ctx, id)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
