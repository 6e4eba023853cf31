package ordersvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kantinku/order/internal/dal/interfaces/iorderitemrepo"
	"github.com/kantinku/order/internal/dal/interfaces/iorderrepo"
	"github.com/kantinku/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/kantinku/order/internal/service/models/cart"
	"github.com/kantinku/order/internal/service/models/lineitem"
	"github.com/kantinku/order/internal/service/models/order"
	"github.com/kantinku/order/internal/service/models/outbox"
	"github.com/kantinku/order/internal/service/models/payment"
	"github.com/kantinku/order/internal/service/models/status"
)

// fakeStore is an in-memory stand-in for the Postgres repositories, sharing
// the version and rate-once semantics of the real ones.
type fakeStore struct {
	mu        sync.Mutex
	orders    map[string]order.Order
	items     map[string][]lineitem.LineItem
	events    []outbox.OutboxMessage
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders: make(map[string]order.Order),
		items:  make(map[string][]lineitem.LineItem),
	}
}

func (f *fakeStore) uow() unitOfWork {
	return &fakeUOW{store: f}
}

type fakeUOW struct {
	store *fakeStore
}

func (u *fakeUOW) Begin(context.Context) error    { return nil }
func (u *fakeUOW) Commit(context.Context) error   { return nil }
func (u *fakeUOW) Rollback(context.Context) error { return nil }

func (u *fakeUOW) OrderRepository() iorderrepo.IOrderRepository {
	return &fakeOrderRepo{store: u.store}
}

func (u *fakeUOW) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return &fakeItemRepo{store: u.store}
}

func (u *fakeUOW) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return &fakeOutboxRepo{store: u.store}
}

type fakeOrderRepo struct {
	store *fakeStore
}

func (r *fakeOrderRepo) Insert(_ context.Context, o order.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.insertErr != nil {
		return r.store.insertErr
	}

	stripped := o
	stripped.Items = nil
	r.store.orders[o.ID] = stripped

	return nil
}

func (r *fakeOrderRepo) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var result []order.Order
	for _, o := range r.store.orders {
		if len(filter.IDs) > 0 && !contains(filter.IDs, o.ID) {
			continue
		}
		if len(filter.CustomerIDs) > 0 && !contains(filter.CustomerIDs, o.CustomerID) {
			continue
		}
		result = append(result, o)
	}

	return result, nil
}

func (r *fakeOrderRepo) ClaimVersion(_ context.Context, orderID string, version int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.orders[orderID]
	if !ok || o.Version != version {
		return iorderrepo.ErrVersionConflict
	}

	o.Version++
	r.store.orders[orderID] = o

	return nil
}

func (r *fakeOrderRepo) UpdateRating(_ context.Context, orderID string, rating int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.orders[orderID]
	if !ok || o.Rating != nil {
		return iorderrepo.ErrAlreadyRated
	}

	o.Rating = &rating
	r.store.orders[orderID] = o

	return nil
}

type fakeItemRepo struct {
	store *fakeStore
}

func (r *fakeItemRepo) BulkInsert(_ context.Context, orderID string, items []lineitem.LineItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.items[orderID] = append([]lineitem.LineItem(nil), items...)

	return nil
}

func (r *fakeItemRepo) QueryByOrderIDs(_ context.Context, orderIDs []string) (map[string][]lineitem.LineItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make(map[string][]lineitem.LineItem, len(orderIDs))
	for _, id := range orderIDs {
		if items, ok := r.store.items[id]; ok {
			result[id] = append([]lineitem.LineItem(nil), items...)
		}
	}

	return result, nil
}

func (r *fakeItemRepo) ReplaceForOrder(_ context.Context, orderID string, items []lineitem.LineItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.items[orderID] = append([]lineitem.LineItem(nil), items...)

	return nil
}

type fakeOutboxRepo struct {
	store *fakeStore
}

func (r *fakeOutboxRepo) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.events = append(r.store.events, msg)

	return nil
}

func (r *fakeOutboxRepo) GetPendingMessages(context.Context, int) ([]outbox.OutboxMessage, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) Delete(context.Context, int64) error { return nil }

func (r *fakeOutboxRepo) UpdateRetry(context.Context, int64, int, string, time.Time) error {
	return nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}

	return false
}

func newTestService(store *fakeStore) *OrderService {
	return MustNewOrderService(withUnitOfWorkFactory(store.uow))
}

func nasiUdukSnapshot() cart.Snapshot {
	return cart.Snapshot{
		Items: []cart.Item{
			{ItemID: 1, Name: "Nasi Uduk", UnitPrice: 15000, Quantity: 2, Vendor: "Warung A"},
		},
		TableNumber: "12",
	}
}

func twoVendorSnapshot() cart.Snapshot {
	return cart.Snapshot{
		Items: []cart.Item{
			{ItemID: 1, Name: "Nasi Uduk", UnitPrice: 15000, Quantity: 2, Vendor: "Warung A"},
			{ItemID: 2, Name: "Es Teh", UnitPrice: 5000, Quantity: 1, Vendor: "Warung B"},
		},
		TableNumber: "7",
	}
}

var budi = cart.CustomerInfo{Name: "Budi", ID: "cust-1"}

func TestCreateOrder_Cash(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	orderID, err := svc.CreateOrder(context.Background(), nasiUdukSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	o, err := svc.GetOrder(orderID)
	require.NoError(t, err)

	assert.Equal(t, int64(30000), o.TotalAmount)
	assert.Equal(t, status.OrderPlaced, o.Status())
	require.Len(t, o.Items, 1)
	assert.Equal(t, status.OrderPlaced, o.Items[0].Status)
	assert.Equal(t, "12", o.TableNumber)
	assert.Equal(t, "Budi", o.CustomerName)

	require.Len(t, store.events, 1)
	assert.Equal(t, outbox.OrderEventsQueue, store.events[0].QueueName)
}

func TestCreateOrder_QRISStartsConfirmed(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	orderID, err := svc.CreateOrder(context.Background(), twoVendorSnapshot(), budi, payment.MethodQRIS, "")
	require.NoError(t, err)

	o, err := svc.GetOrder(orderID)
	require.NoError(t, err)

	assert.Equal(t, status.PaymentConfirmed, o.Status())
	for _, item := range o.Items {
		assert.Equal(t, status.PaymentConfirmed, item.Status)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	testCases := map[string]struct {
		snap   cart.Snapshot
		info   cart.CustomerInfo
		method payment.Method
	}{
		"empty cart": {
			snap:   cart.Snapshot{},
			info:   budi,
			method: payment.MethodCash,
		},
		"missing customer name": {
			snap:   nasiUdukSnapshot(),
			info:   cart.CustomerInfo{ID: "cust-1"},
			method: payment.MethodCash,
		},
		"missing customer id": {
			snap:   nasiUdukSnapshot(),
			info:   cart.CustomerInfo{Name: "Budi"},
			method: payment.MethodCash,
		},
		"unknown payment method": {
			snap:   nasiUdukSnapshot(),
			info:   budi,
			method: payment.Method("card"),
		},
		"zero quantity": {
			snap: cart.Snapshot{Items: []cart.Item{
				{ItemID: 1, Name: "Nasi Uduk", UnitPrice: 15000, Quantity: 0, Vendor: "Warung A"},
			}},
			info:   budi,
			method: payment.MethodCash,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, tc.snap, tc.info, tc.method, "")
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	assert.Empty(t, store.orders, "no validation failure may reach the store")
	assert.Empty(t, store.events)
}

func TestCreateOrder_PersistenceFailure(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("connection refused")
	svc := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), nasiUdukSnapshot(), budi, payment.MethodCash, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)

	assert.Empty(t, svc.GetCustomerOrders(budi.ID), "failed create must not populate the cache")
}

func TestUpdateItemStatus_CompletesSingleItemOrder(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	orderID, err := svc.CreateOrder(context.Background(), nasiUdukSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateItemStatus(context.Background(), orderID, 1, status.Completed))

	o, err := svc.GetOrder(orderID)
	require.NoError(t, err)
	assert.Equal(t, status.Completed, o.Status(), "all items completed completes the order")
}

func TestUpdateItemStatus_TouchesOnlyTargetItem(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	orderID, err := svc.CreateOrder(context.Background(), twoVendorSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateItemStatus(context.Background(), orderID, 1, status.Completed))

	o, err := svc.GetOrder(orderID)
	require.NoError(t, err)
	require.Len(t, o.Items, 2)

	assert.Equal(t, status.Completed, o.Items[0].Status)
	assert.Equal(t, status.OrderPlaced, o.Items[1].Status, "sibling untouched")
	assert.Equal(t, "Es Teh", o.Items[1].Name)
	assert.Equal(t, int64(5000), o.Items[1].UnitPrice)
	assert.Equal(t, status.PaymentConfirmed, o.Status(), "one completed item only confirms the order")
}

func TestUpdateItemStatus_NotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	err := svc.UpdateItemStatus(context.Background(), "missing", 1, status.Completed)
	assert.ErrorIs(t, err, ErrNotFound)

	orderID, err := svc.CreateOrder(context.Background(), nasiUdukSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)

	err = svc.UpdateItemStatus(context.Background(), orderID, 42, status.Completed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrderStatus_CashConfirmPromotesAllItems(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	orderID, err := svc.CreateOrder(context.Background(), twoVendorSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateOrderStatus(context.Background(), orderID, status.PaymentConfirmed))

	o, err := svc.GetOrder(orderID)
	require.NoError(t, err)
	for _, item := range o.Items {
		assert.Equal(t, status.PaymentConfirmed, item.Status)
	}
	assert.Equal(t, status.PaymentConfirmed, o.Status())
}

func TestUpdateItemStatus_RetriesAfterLostRace(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	orderID, err := svc.CreateOrder(context.Background(), twoVendorSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)

	// Another writer confirms item 2 behind this service's cache.
	store.mu.Lock()
	o := store.orders[orderID]
	o.Version++
	store.orders[orderID] = o
	store.items[orderID][1].Status = status.PaymentConfirmed
	store.mu.Unlock()

	require.NoError(t, svc.UpdateItemStatus(context.Background(), orderID, 1, status.Completed))

	got, err := svc.GetOrder(orderID)
	require.NoError(t, err)
	assert.Equal(t, status.Completed, got.Items[0].Status)
	assert.Equal(t, status.PaymentConfirmed, got.Items[1].Status, "remote write must survive the retry")
}

func TestAddRating(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	orderID, err := svc.CreateOrder(ctx, nasiUdukSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.AddRating(ctx, orderID, 0), ErrValidation)
	assert.ErrorIs(t, svc.AddRating(ctx, orderID, 6), ErrValidation)

	err = svc.AddRating(ctx, orderID, 5)
	assert.ErrorIs(t, err, ErrValidation, "rating requires a completed order")

	require.NoError(t, svc.UpdateOrderStatus(ctx, orderID, status.Completed))
	require.NoError(t, svc.AddRating(ctx, orderID, 5))

	o, err := svc.GetOrder(orderID)
	require.NoError(t, err)
	require.NotNil(t, o.Rating)
	assert.Equal(t, 5, *o.Rating)

	err = svc.AddRating(ctx, orderID, 3)
	assert.ErrorIs(t, err, ErrConflict, "ratings are rate-once")
	assert.Equal(t, 5, *o.Rating)

	assert.ErrorIs(t, svc.AddRating(ctx, "missing", 4), ErrNotFound)
}

func TestGetVendorOrders_Projection(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	orderID, err := svc.CreateOrder(ctx, twoVendorSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)

	// Vendor B confirms the cash payment for the whole order.
	require.NoError(t, svc.UpdateOrderStatus(ctx, orderID, status.PaymentConfirmed))

	views := svc.GetVendorOrders("Warung A")
	require.Len(t, views, 1)

	view := views[0]
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Warung A", view.Items[0].Vendor)
	assert.Equal(t, int64(30000), view.TotalAmount, "vendor sees only own revenue")
	assert.Equal(t, status.PaymentConfirmed, view.Status, "status is the global aggregate")

	assert.Empty(t, svc.GetVendorOrders("Warung C"))
}

func TestGetVendorOrders_SortedNewestFirst(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Hour), base.Add(30 * time.Minute)}
	i := 0
	svc.now = func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	ctx := context.Background()
	for range times {
		_, err := svc.CreateOrder(ctx, nasiUdukSnapshot(), budi, payment.MethodCash, "")
		require.NoError(t, err)
	}

	views := svc.GetVendorOrders("Warung A")
	require.Len(t, views, 3)
	assert.Equal(t, base.Add(time.Hour), views[0].CreatedAt)
	assert.Equal(t, base.Add(30*time.Minute), views[1].CreatedAt)
	assert.Equal(t, base, views[2].CreatedAt)
}

func TestGetCustomerOrders(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, nasiUdukSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, nasiUdukSnapshot(), cart.CustomerInfo{Name: "Sari", ID: "cust-2"}, payment.MethodCash, "")
	require.NoError(t, err)

	orders := svc.GetCustomerOrders("cust-1")
	require.Len(t, orders, 1)
	assert.Equal(t, "cust-1", orders[0].CustomerID)
}

func TestResync_PicksUpRemoteWrites(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	orderID, err := svc.CreateOrder(ctx, nasiUdukSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)

	// A remote writer completes the item; the cache does not know yet.
	store.mu.Lock()
	store.items[orderID][0].Status = status.Completed
	store.mu.Unlock()

	o, err := svc.GetOrder(orderID)
	require.NoError(t, err)
	assert.Equal(t, status.OrderPlaced, o.Status(), "stale until notified")

	require.NoError(t, svc.Resync(ctx))

	o, err = svc.GetOrder(orderID)
	require.NoError(t, err)
	assert.Equal(t, status.Completed, o.Status())
}

func TestGetOrder_CopiesAreDetached(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	orderID, err := svc.CreateOrder(context.Background(), nasiUdukSnapshot(), budi, payment.MethodCash, "")
	require.NoError(t, err)

	o, err := svc.GetOrder(orderID)
	require.NoError(t, err)
	o.Items[0].Status = status.Completed

	fresh, err := svc.GetOrder(orderID)
	require.NoError(t, err)
	assert.Equal(t, status.OrderPlaced, fresh.Items[0].Status, "callers must not mutate the cache")
}
