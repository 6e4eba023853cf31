package listorders

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/kantinku/order/internal/service/models/order"
)

type service interface {
	GetCustomerOrders(customerID string) []order.Order
}

type listOrdersRequest struct {
	CustomerID string `schema:"customerId,required"`
}

type orderInListResponse struct {
	order.Order
	Status string `json:"status"`
}

// ListOrders handles the customer order history request.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &listOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request", "error", err)

		return
	}

	orders := service.GetCustomerOrders(query.CustomerID)

	response := make([]orderInListResponse, len(orders))
	for i, o := range orders {
		response[i] = orderInListResponse{Order: o, Status: o.Status().String()}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response", "error", err)
	}
}
