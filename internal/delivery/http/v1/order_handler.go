package v1

import (
	"net/http"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/delivery/http/middleware"
	"herbalstore-backend/internal/domain"
	"herbalstore-backend/internal/usecase"

	"github.com/goccy/go-json"
)

type OrderHandler struct {
	orderUC *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{orderUC: uc}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req usecase.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperror.Validation("invalid request body", err))
		return
	}

	order, err := h.orderUC.Create(r.Context(), user, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "order placed", order)
}

func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orders, err := h.orderUC.GetMyOrders(r.Context(), user.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respond(w, http.StatusOK, "", orders)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")
	if id == "" {
		respondError(w, r, apperror.Validation("order id is required", nil))
		return
	}

	order, err := h.orderUC.GetOrder(r.Context(), id, user)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", order)
}

func (h *OrderHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	order, err := h.orderUC.GetInvoice(r.Context(), r.PathValue("id"), user)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", order)
}

func (h *OrderHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var info domain.JSONB
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
			respondError(w, r, apperror.Validation("invalid payment payload", err))
			return
		}
	}

	order, err := h.orderUC.MarkPaid(r.Context(), r.PathValue("id"), user, info)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "order marked as paid", order)
}

type cancelOrderReq struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req cancelOrderReq
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, r, apperror.Validation("invalid request body", err))
			return
		}
	}

	order, err := h.orderUC.Cancel(r.Context(), r.PathValue("id"), user, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "order cancelled", order)
}
