package httperr

import (
	"errors"
	"net/http"

	"github.com/kantinku/order/internal/service/services/ordersvc"
)

// StatusCode maps the service error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a persistence failure.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ordersvc.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ordersvc.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ordersvc.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
