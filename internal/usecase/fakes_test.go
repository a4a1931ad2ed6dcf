package usecase

import (
	"context"
	"time"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/domain"

	"github.com/google/uuid"
)

// In-memory fakes backing the usecase tests. Redeem and Reserve mirror the
// guarded writes of the real store so limit and stock races are observable.

type fakeCouponRepo struct {
	coupons map[uuid.UUID]*domain.Coupon
}

func newFakeCouponRepo(coupons ...*domain.Coupon) *fakeCouponRepo {
	repo := &fakeCouponRepo{coupons: make(map[uuid.UUID]*domain.Coupon)}
	for _, c := range coupons {
		repo.coupons[c.ID] = c
	}
	return repo
}

func (r *fakeCouponRepo) Create(_ context.Context, coupon *domain.Coupon) error {
	for _, c := range r.coupons {
		if c.Code == coupon.Code {
			return apperror.Conflict("coupon code already exists", nil)
		}
	}
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	r.coupons[coupon.ID] = coupon
	return nil
}

func (r *fakeCouponRepo) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	for _, c := range r.coupons {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("coupon not found", nil)
}

func (r *fakeCouponRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Coupon, error) {
	c, ok := r.coupons[id]
	if !ok {
		return nil, apperror.NotFound("coupon not found", nil)
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCouponRepo) List(_ context.Context, filter domain.CouponFilter) ([]domain.Coupon, int64, error) {
	var out []domain.Coupon
	for _, c := range r.coupons {
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeCouponRepo) ListActive(_ context.Context) ([]domain.Coupon, error) {
	var out []domain.Coupon
	for _, c := range r.coupons {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCouponRepo) Update(_ context.Context, coupon *domain.Coupon) error {
	if _, ok := r.coupons[coupon.ID]; !ok {
		return apperror.NotFound("coupon not found", nil)
	}
	r.coupons[coupon.ID] = coupon
	return nil
}

func (r *fakeCouponRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	c, ok := r.coupons[id]
	if !ok {
		return apperror.NotFound("coupon not found", nil)
	}
	c.IsActive = active
	return nil
}

func (r *fakeCouponRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.coupons[id]; !ok {
		return apperror.NotFound("coupon not found", nil)
	}
	delete(r.coupons, id)
	return nil
}

func (r *fakeCouponRepo) Redeem(_ context.Context, couponID uuid.UUID, userID string) error {
	c, ok := r.coupons[couponID]
	if !ok {
		return apperror.NotFound("coupon not found", nil)
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return apperror.Conflict("coupon usage limit reached", nil)
	}
	limit := c.PerUserLimit
	if limit <= 0 {
		limit = 1
	}
	if u := c.UsageFor(userID); u != nil {
		if u.UsedCount >= limit {
			return apperror.Conflict("coupon usage limit reached", nil)
		}
		u.UsedCount++
		u.LastUsedAt = time.Now()
	} else {
		c.UsedBy = append(c.UsedBy, domain.CouponUsage{UserID: userID, UsedCount: 1, LastUsedAt: time.Now()})
	}
	c.UsageCount++
	return nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found", nil)
	}
	return u, nil
}

type fakeOrderRepo struct {
	orders      map[string]*domain.Order
	orderCounts map[string]int64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:      make(map[string]*domain.Order),
		orderCounts: make(map[string]int64),
	}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order) error {
	cp := *order
	r.orders[order.ID] = &cp
	r.orderCounts[order.UserID]++
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, apperror.NotFound("order not found", nil)
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) GetByUserID(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) GetAll(_ context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	var out []domain.Order
	for _, o := range r.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) CountByUser(_ context.Context, userID string) (int64, error) {
	return r.orderCounts[userID], nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id, newStatus string, tracking *string, deliveredAt *time.Time) error {
	o, ok := r.orders[id]
	if !ok {
		return apperror.NotFound("order not found", nil)
	}
	o.Status = newStatus
	if tracking != nil {
		o.TrackingNumber = *tracking
	}
	if deliveredAt != nil {
		o.IsDelivered = true
		o.DeliveredAt = deliveredAt
	}
	return nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, id string, paidAt time.Time, info domain.JSONB) error {
	o, ok := r.orders[id]
	if !ok {
		return apperror.NotFound("order not found", nil)
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.PaymentInfo = info
	return nil
}

func (r *fakeOrderRepo) Cancel(_ context.Context, id, reason string) error {
	o, ok := r.orders[id]
	if !ok {
		return apperror.NotFound("order not found", nil)
	}
	o.Status = domain.OrderStatusCancelled
	o.CancelReason = reason
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.orders[id]; !ok {
		return apperror.NotFound("order not found", nil)
	}
	delete(r.orders, id)
	return nil
}

func (r *fakeOrderRepo) AppendHistory(_ context.Context, orderID string, event domain.StatusEvent) error {
	o, ok := r.orders[orderID]
	if !ok {
		return apperror.NotFound("order not found", nil)
	}
	o.StatusHistory = append(o.StatusHistory, event)
	return nil
}

func (r *fakeOrderRepo) GetHistory(_ context.Context, orderID string) ([]domain.StatusEvent, error) {
	o, ok := r.orders[orderID]
	if !ok {
		return nil, apperror.NotFound("order not found", nil)
	}
	return o.StatusHistory, nil
}

type fakeProductRepo struct {
	products map[string]*domain.Product
	reserved []domain.ReservationItem
	released []domain.ReservationItem
}

func newFakeProductRepo(products ...*domain.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: make(map[string]*domain.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *fakeProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, apperror.NotFound("product not found", nil)
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) Reserve(_ context.Context, item domain.ReservationItem) error {
	p, ok := r.products[item.ProductID]
	if !ok {
		return apperror.NotFound("product not found", nil)
	}
	if p.Stock < item.Quantity {
		return apperror.Conflict("insufficient stock for product "+item.ProductID, nil)
	}
	p.Stock -= item.Quantity
	p.SoldCount += item.Quantity
	r.reserved = append(r.reserved, item)
	return nil
}

func (r *fakeProductRepo) Release(_ context.Context, item domain.ReservationItem) error {
	p, ok := r.products[item.ProductID]
	if !ok {
		return apperror.NotFound("product not found", nil)
	}
	p.Stock += item.Quantity
	p.SoldCount -= item.Quantity
	if p.SoldCount < 0 {
		p.SoldCount = 0
	}
	r.released = append(r.released, item)
	return nil
}

// fakeTxManager runs the function directly. On error it invokes rollback,
// which tests use to restore the fakes to their pre-transaction state.
type fakeTxManager struct {
	calls    int
	rollback func()
}

func (m *fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if err := fn(ctx); err != nil {
		if m.rollback != nil {
			m.rollback()
		}
		return err
	}
	return nil
}

type recordedEvent struct {
	kind    string
	orderID string
}

type fakePublisher struct {
	events []recordedEvent
}

func (p *fakePublisher) OrderCreated(order *domain.Order) error {
	p.events = append(p.events, recordedEvent{kind: "created", orderID: order.ID})
	return nil
}

func (p *fakePublisher) OrderStatusChanged(orderID, _, _ string, _ *string) error {
	p.events = append(p.events, recordedEvent{kind: "status", orderID: orderID})
	return nil
}

func (p *fakePublisher) OrderCancelled(orderID, _ string) error {
	p.events = append(p.events, recordedEvent{kind: "cancelled", orderID: orderID})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeCache struct {
	items map[string]interface{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string]interface{})}
}

func (c *fakeCache) Get(key string) (interface{}, bool) {
	v, ok := c.items[key]
	return v, ok
}

func (c *fakeCache) Set(key string, value interface{}, _ time.Duration) {
	c.items[key] = value
}

func (c *fakeCache) Delete(key string) {
	delete(c.items, key)
}

func (c *fakeCache) Flush() {
	c.items = make(map[string]interface{})
}
