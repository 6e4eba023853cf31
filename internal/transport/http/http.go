package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	addrating "github.com/kantinku/order/internal/transport/http/add_rating"
	createorder "github.com/kantinku/order/internal/transport/http/create_order"
	getorder "github.com/kantinku/order/internal/transport/http/get_order"
	listorders "github.com/kantinku/order/internal/transport/http/list_orders"
	updatestatus "github.com/kantinku/order/internal/transport/http/update_status"
	vendororders "github.com/kantinku/order/internal/transport/http/vendor_orders"
	"github.com/kantinku/order/internal/service/models/cart"
	"github.com/kantinku/order/internal/service/models/order"
	"github.com/kantinku/order/internal/service/models/payment"
	"github.com/kantinku/order/internal/service/models/status"
	"github.com/kantinku/order/pkg/http/middleware/trace"
	"github.com/kantinku/order/pkg/logger"
)

type service interface {
	CreateOrder(
		ctx context.Context,
		snap cart.Snapshot,
		info cart.CustomerInfo,
		method payment.Method,
		note string,
	) (string, error)
	UpdateItemStatus(ctx context.Context, orderID string, itemID int64, newStatus status.Status) error
	UpdateOrderStatus(ctx context.Context, orderID string, newStatus status.Status) error
	AddRating(ctx context.Context, orderID string, rating int) error
	GetOrder(orderID string) (*order.Order, error)
	GetVendorOrders(vendor string) []order.VendorOrder
	GetCustomerOrders(customerID string) []order.Order
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
}

func NewHTTPTransport(service service) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{orderID}", h.getOrder)
		r.Patch("/orders/{orderID}/status", h.updateOrderStatus)
		r.Patch("/orders/{orderID}/items/{itemID}/status", h.updateItemStatus)
		r.Post("/orders/{orderID}/rating", h.addRating)
		r.Get("/vendors/{vendor}/orders", h.vendorOrders)
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.service)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.service)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.service)
}

func (h *HTTPTransport) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	updatestatus.UpdateOrderStatus(w, r, h.service)
}

func (h *HTTPTransport) updateItemStatus(w http.ResponseWriter, r *http.Request) {
	updatestatus.UpdateItemStatus(w, r, h.service)
}

func (h *HTTPTransport) addRating(w http.ResponseWriter, r *http.Request) {
	addrating.AddRating(w, r, h.service)
}

func (h *HTTPTransport) vendorOrders(w http.ResponseWriter, r *http.Request) {
	vendororders.ListVendorOrders(w, r, h.service)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
