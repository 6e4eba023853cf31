package createorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kantinku/order/internal/service/models/cart"
	"github.com/kantinku/order/internal/service/models/payment"
	"github.com/kantinku/order/internal/transport/http/httperr"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(
		ctx context.Context,
		snap cart.Snapshot,
		info cart.CustomerInfo,
		method payment.Method,
		note string,
	) (string, error)
}

// itemInCreateOrderRequest represents a cart line in a create order request.
type itemInCreateOrderRequest struct {
	ID       int64  `json:"id"       validate:"gt=0"`
	Name     string `json:"name"     validate:"required"`
	Price    int64  `json:"price"    validate:"gte=0"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Vendor   string `json:"vendor"   validate:"required"`
	ImageURL string `json:"imageUrl"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	TableNumber   string                     `json:"tableNumber"`
	CustomerName  string                     `json:"customerName"  validate:"required"`
	CustomerID    string                     `json:"customerId"    validate:"required"`
	PaymentMethod string                     `json:"paymentMethod" validate:"required"`
	Note          string                     `json:"note"`
	Items         []itemInCreateOrderRequest `json:"items"         validate:"required,min=1,dive"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

func (r *createOrderRequest) toSnapshot() cart.Snapshot {
	items := make([]cart.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = cart.Item{
			ItemID:    it.ID,
			Name:      it.Name,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
			Vendor:    it.Vendor,
			ImageURL:  it.ImageURL,
		}
	}

	return cart.Snapshot{
		Items:       items,
		TableNumber: r.TableNumber,
	}
}

type createOrderResponse struct {
	ID string `json:"id"`
}

// CreateOrder handles the create order request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderReq := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&orderReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if err := orderReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for create order", "error", err)

		return
	}

	method, err := payment.ParseMethod(orderReq.PaymentMethod)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing payment method for create order", "error", err)

		return
	}

	info := cart.CustomerInfo{
		Name: orderReq.CustomerName,
		ID:   orderReq.CustomerID,
	}

	orderID, err := service.CreateOrder(r.Context(), orderReq.toSnapshot(), info, method, orderReq.Note)
	if err != nil {
		http.Error(w, err.Error(), httperr.StatusCode(err))
		slog.Error("Error creating order", "error", err)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(createOrderResponse{ID: orderID}); err != nil {
		slog.Error("Error sending response for create order", "error", err)
	}
}
