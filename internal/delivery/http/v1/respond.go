package v1

import (
	"net/http"

	"herbalstore-backend/internal/apperror"
	"herbalstore-backend/internal/domain"
	"herbalstore-backend/pkg/logger"
	"herbalstore-backend/pkg/utils"
)

func respond(w http.ResponseWriter, status int, message string, data interface{}) {
	utils.WriteJSON(w, status, domain.Response{
		Success: status < 400,
		Message: message,
		Data:    data,
	})
}

func respondPage(w http.ResponseWriter, message string, data interface{}, meta *domain.Pagination) {
	utils.WriteJSON(w, http.StatusOK, domain.Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

// respondError maps typed errors to their HTTP status. Internal errors are
// logged and the client gets a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.StatusCode(err)
	message := err.Error()
	if status >= 500 {
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		message = "internal server error"
	}
	respond(w, status, message, nil)
}
