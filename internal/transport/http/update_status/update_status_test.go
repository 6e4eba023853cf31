package updatestatus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/kantinku/order/internal/service/models/status"
	"github.com/kantinku/order/internal/service/services/ordersvc"
)

type stubService struct {
	err error

	gotOrderID string
	gotItemID  int64
	gotStatus  status.Status
	itemCalls  int
	orderCalls int
}

func (s *stubService) UpdateItemStatus(_ context.Context, orderID string, itemID int64, newStatus status.Status) error {
	s.itemCalls++
	s.gotOrderID = orderID
	s.gotItemID = itemID
	s.gotStatus = newStatus

	return s.err
}

func (s *stubService) UpdateOrderStatus(_ context.Context, orderID string, newStatus status.Status) error {
	s.orderCalls++
	s.gotOrderID = orderID
	s.gotStatus = newStatus

	return s.err
}

func newRouter(svc *stubService) http.Handler {
	router := chi.NewRouter()
	router.Patch("/api/orders/{orderID}/status", func(w http.ResponseWriter, r *http.Request) {
		UpdateOrderStatus(w, r, svc)
	})
	router.Patch("/api/orders/{orderID}/items/{itemID}/status", func(w http.ResponseWriter, r *http.Request) {
		UpdateItemStatus(w, r, svc)
	})

	return router
}

func TestUpdateItemStatus(t *testing.T) {
	svc := &stubService{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPatch,
		"/api/orders/order-1/items/2/status",
		strings.NewReader(`{"status": "Completed"}`),
	)

	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, svc.itemCalls)
	assert.Equal(t, "order-1", svc.gotOrderID)
	assert.Equal(t, int64(2), svc.gotItemID)
	assert.Equal(t, status.Completed, svc.gotStatus)
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := &stubService{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPatch,
		"/api/orders/order-1/status",
		strings.NewReader(`{"status": "Payment Confirmed"}`),
	)

	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, svc.orderCalls)
	assert.Equal(t, "order-1", svc.gotOrderID)
	assert.Equal(t, status.PaymentConfirmed, svc.gotStatus)
}

func TestUpdateStatus_BadRequests(t *testing.T) {
	testCases := map[string]struct {
		path string
		body string
	}{
		"unknown status": {
			path: "/api/orders/order-1/status",
			body: `{"status": "Shipped"}`,
		},
		"malformed json": {
			path: "/api/orders/order-1/status",
			body: `{"status": `,
		},
		"bad item id": {
			path: "/api/orders/order-1/items/abc/status",
			body: `{"status": "Completed"}`,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			svc := &stubService{}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, tc.path, strings.NewReader(tc.body))

			newRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, svc.itemCalls)
			assert.Zero(t, svc.orderCalls)
		})
	}
}

func TestUpdateStatus_ServiceErrors(t *testing.T) {
	testCases := map[string]struct {
		err  error
		code int
	}{
		"not found": {err: ordersvc.ErrNotFound, code: http.StatusNotFound},
		"conflict":  {err: ordersvc.ErrConflict, code: http.StatusConflict},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			svc := &stubService{err: tc.err}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(
				http.MethodPatch,
				"/api/orders/order-1/status",
				strings.NewReader(`{"status": "Completed"}`),
			)

			newRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
