package v1

import (
	"net/http"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/delivery/http/middleware"
	"herbalstore-backend/internal/usecase"

	"github.com/goccy/go-json"
)

type CouponHandler struct {
	couponUC *usecase.CouponUsecase
}

func NewCouponHandler(uc *usecase.CouponUsecase) *CouponHandler {
	return &CouponHandler{couponUC: uc}
}

type validateCouponReq struct {
	Code        string  `json:"code"`
	OrderAmount float64 `json:"orderAmount"`
}

func (h *CouponHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req validateCouponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperror.Validation("invalid request body", err))
		return
	}

	quote, err := h.couponUC.Validate(r.Context(), req.Code, user.ID, req.OrderAmount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "coupon is valid", quote)
}

func (h *CouponHandler) AvailableCoupons(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	coupons, err := h.couponUC.Available(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", coupons)
}
