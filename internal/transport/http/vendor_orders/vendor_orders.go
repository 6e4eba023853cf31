package vendororders

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kantinku/order/internal/service/models/order"
)

type service interface {
	GetVendorOrders(vendor string) []order.VendorOrder
}

// ListVendorOrders handles the vendor order listing request.
func ListVendorOrders(w http.ResponseWriter, r *http.Request, service service) {
	vendor := chi.URLParam(r, "vendor")
	if vendor == "" {
		http.Error(w, "vendor is required", http.StatusBadRequest)

		return
	}

	orders := service.GetVendorOrders(vendor)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(orders); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
