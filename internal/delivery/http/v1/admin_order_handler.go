package v1

import (
	"net/http"
	"strconv"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/delivery/http/middleware"
	"herbalstore-backend/internal/domain"
	"herbalstore-backend/internal/usecase"

	"github.com/goccy/go-json"
)

type AdminOrderHandler struct {
	orderUC *usecase.OrderUsecase
}

func NewAdminOrderHandler(uc *usecase.OrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orderUC: uc}
}

func (h *AdminOrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.OrderFilter{
		Page:   parseIntQuery(q.Get("page"), 1),
		Limit:  parseIntQuery(q.Get("limit"), 20),
		Status: q.Get("status"),
	}
	if v := q.Get("isPaid"); v != "" {
		b := v == "true"
		filter.IsPaid = &b
	}
	if v := q.Get("isDelivered"); v != "" {
		b := v == "true"
		filter.IsDelivered = &b
	}

	orders, total, err := h.orderUC.GetAllOrders(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respondPage(w, "", orders, newPagination(filter.Page, filter.Limit, total))
}

func (h *AdminOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req usecase.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperror.Validation("invalid request body", err))
		return
	}

	order, err := h.orderUC.UpdateStatus(r.Context(), r.PathValue("id"), user, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "order status updated", order)
}

func (h *AdminOrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orderUC.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "order deleted", nil)
}

func parseIntQuery(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func newPagination(page, limit int, total int64) *domain.Pagination {
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return &domain.Pagination{
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: pages,
	}
}
