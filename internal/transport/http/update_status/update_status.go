package updatestatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kantinku/order/internal/service/models/status"
	"github.com/kantinku/order/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	UpdateItemStatus(ctx context.Context, orderID string, itemID int64, newStatus status.Status) error
	UpdateOrderStatus(ctx context.Context, orderID string, newStatus status.Status) error
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func decodeStatus(w http.ResponseWriter, r *http.Request) (status.Status, bool) {
	req := updateStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding status update request", "error", err)

		return "", false
	}

	newStatus, err := status.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing status", "status", req.Status, "error", err)

		return "", false
	}

	return newStatus, true
}

// UpdateItemStatus handles the single line item status update request.
func UpdateItemStatus(w http.ResponseWriter, r *http.Request, service service) {
	orderID := chi.URLParam(r, "orderID")

	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		slog.Error("Error parsing item id", "error", err)

		return
	}

	newStatus, ok := decodeStatus(w, r)
	if !ok {
		return
	}

	if err := service.UpdateItemStatus(r.Context(), orderID, itemID, newStatus); err != nil {
		http.Error(w, err.Error(), httperr.StatusCode(err))
		slog.Error("Error updating item status", "order_id", orderID, "item_id", itemID, "error", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateOrderStatus handles the bulk status update request: every item in
// the order moves to the new status together.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request, service service) {
	orderID := chi.URLParam(r, "orderID")

	newStatus, ok := decodeStatus(w, r)
	if !ok {
		return
	}

	if err := service.UpdateOrderStatus(r.Context(), orderID, newStatus); err != nil {
		http.Error(w, err.Error(), httperr.StatusCode(err))
		slog.Error("Error updating order status", "order_id", orderID, "error", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
