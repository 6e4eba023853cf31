package addrating

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kantinku/order/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	AddRating(ctx context.Context, orderID string, rating int) error
}

type addRatingRequest struct {
	Rating int `json:"rating" validate:"gte=1,lte=5"`
}

// Validate validates the add rating request.
func (r *addRatingRequest) Validate() error {
	return validator.New().Struct(r)
}

// AddRating handles the rate order request.
func AddRating(w http.ResponseWriter, r *http.Request, service service) {
	orderID := chi.URLParam(r, "orderID")

	req := addRatingRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for add rating", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for add rating", "error", err)

		return
	}

	if err := service.AddRating(r.Context(), orderID, req.Rating); err != nil {
		http.Error(w, err.Error(), httperr.StatusCode(err))
		slog.Error("Error adding rating", "order_id", orderID, "error", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
