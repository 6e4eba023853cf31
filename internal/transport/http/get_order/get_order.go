package getorder

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kantinku/order/internal/service/models/order"
	"github.com/kantinku/order/internal/transport/http/httperr"
)

type service interface {
	GetOrder(orderID string) (*order.Order, error)
}

// getOrderResponse carries the order together with its derived aggregate
// status, which is not a stored field.
type getOrderResponse struct {
	order.Order
	Status string `json:"status"`
}

// GetOrder handles the get order request.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID := chi.URLParam(r, "orderID")

	o, err := service.GetOrder(orderID)
	if err != nil {
		http.Error(w, err.Error(), httperr.StatusCode(err))
		slog.Error("Error getting order", "order_id", orderID, "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(getOrderResponse{
		Order:  *o,
		Status: o.Status().String(),
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
