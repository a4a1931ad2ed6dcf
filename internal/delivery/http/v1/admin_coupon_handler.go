package v1

import (
	"net/http"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/domain"
	"herbalstore-backend/internal/usecase"

	"github.com/goccy/go-json"
)

type AdminCouponHandler struct {
	couponUC *usecase.CouponUsecase
}

func NewAdminCouponHandler(uc *usecase.CouponUsecase) *AdminCouponHandler {
	return &AdminCouponHandler{couponUC: uc}
}

func (h *AdminCouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req usecase.CreateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperror.Validation("invalid request body", err))
		return
	}

	coupon, err := h.couponUC.CreateCoupon(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "coupon created", coupon)
}

func (h *AdminCouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.CouponFilter{
		Page:  parseIntQuery(q.Get("page"), 1),
		Limit: parseIntQuery(q.Get("limit"), 20),
	}
	if v := q.Get("isActive"); v != "" {
		b := v == "true"
		filter.IsActive = &b
	}

	coupons, total, err := h.couponUC.ListCoupons(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if coupons == nil {
		coupons = []domain.Coupon{}
	}
	respondPage(w, "", coupons, newPagination(filter.Page, filter.Limit, total))
}

func (h *AdminCouponHandler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	coupon, err := h.couponUC.GetCoupon(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", coupon)
}

func (h *AdminCouponHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req usecase.UpdateCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperror.Validation("invalid request body", err))
		return
	}

	coupon, err := h.couponUC.UpdateCoupon(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "coupon updated", coupon)
}

func (h *AdminCouponHandler) ToggleCoupon(w http.ResponseWriter, r *http.Request) {
	coupon, err := h.couponUC.ToggleActive(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "coupon toggled", coupon)
}

func (h *AdminCouponHandler) CouponStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.couponUC.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", stats)
}

func (h *AdminCouponHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.couponUC.DeleteCoupon(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "coupon deleted", nil)
}
