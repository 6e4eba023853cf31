package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kantinku/order/internal/dal/interfaces/iorderitemrepo"
	"github.com/kantinku/order/internal/dal/interfaces/iorderrepo"
	"github.com/kantinku/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/kantinku/order/internal/dal/postgres"
	"github.com/kantinku/order/internal/dal/uow"
	"github.com/kantinku/order/internal/service/models/cart"
	"github.com/kantinku/order/internal/service/models/lineitem"
	"github.com/kantinku/order/internal/service/models/order"
	"github.com/kantinku/order/internal/service/models/outbox"
	"github.com/kantinku/order/internal/service/models/payment"
	"github.com/kantinku/order/internal/service/models/status"
)

// Error taxonomy surfaced to callers. Everything else is a persistence
// failure passed through wrapped.
var (
	// ErrValidation rejects a call before any persistence attempt.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means the order (or line item) is absent from the known set.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a concurrent writer won, or a rate-once rule fired.
	ErrConflict = errors.New("conflict")
)

// Tables whose changes invalidate the order cache.
const (
	ordersTable     = "orders"
	orderItemsTable = "order_items"
)

// OrderService owns the order lifecycle: creation from a cart snapshot,
// per-item and order-wide status updates, ratings, and the vendor and
// customer views. It keeps an in-memory snapshot of all orders, fully
// resynced whenever the change listener reports a write.
type OrderService struct {
	pgClient   *postgres.Client
	uowFactory func() unitOfWork
	changes    changeSource
	now        func() time.Time
	newID      func() string

	refreshCh chan struct{}

	mu     sync.RWMutex
	orders map[string]order.Order

	lockMu     sync.Mutex
	orderLocks map[string]*sync.Mutex
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// changeSource is the push-based invalidation bridge: it fires a callback
// whenever a row of the given table changes, from any writer.
type changeSource interface {
	OnChange(table string, fn func())
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		now:        time.Now,
		newID:      uuid.NewString,
		refreshCh:  make(chan struct{}, 1),
		orders:     make(map[string]order.Order),
		orderLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.uowFactory == nil {
		s.uowFactory = func() unitOfWork {
			return uow.NewUnitOfWork(s.pgClient)
		}
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
	}
}

// WithChangeSource sets the change notification bridge the service refreshes
// its cache from.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithChangeSource(changes changeSource) option {
	return func(s *OrderService) {
		s.changes = changes
	}
}

func withUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.uowFactory = factory
	}
}

// Run loads the initial snapshot, subscribes to change notifications and
// resyncs until the context is cancelled.
func (s *OrderService) Run(ctx context.Context) error {
	if err := s.Resync(ctx); err != nil {
		return fmt.Errorf("initial order sync failed: %w", err)
	}

	if s.changes != nil {
		s.changes.OnChange(ordersTable, s.scheduleResync)
		s.changes.OnChange(orderItemsTable, s.scheduleResync)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.refreshCh:
			if err := s.Resync(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("Order resync failed", "error", err)
			}
		}
	}
}

// scheduleResync coalesces change notifications; the listener goroutine must
// not block on a slow resync.
func (s *OrderService) scheduleResync() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Resync replaces the in-memory snapshot with the current database state.
func (s *OrderService) Resync(ctx context.Context) error {
	work := s.uowFactory()

	orders, err := work.OrderRepository().Query(ctx, &order.QueryOrdersModel{})
	if err != nil {
		return fmt.Errorf("failed to query orders: %w", err)
	}

	orderIDs := make([]string, len(orders))
	for i := range orders {
		orderIDs[i] = orders[i].ID
	}

	itemsByOrder, err := work.OrderItemRepository().QueryByOrderIDs(ctx, orderIDs)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}

	snapshot := make(map[string]order.Order, len(orders))
	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
		snapshot[orders[i].ID] = orders[i]
	}

	s.mu.Lock()
	s.orders = snapshot
	s.mu.Unlock()

	return nil
}

// CreateOrder builds an order from the cart snapshot and persists it
// atomically together with its outbox event. Returns the new order id.
// Clearing the cart afterwards is the caller's responsibility.
func (s *OrderService) CreateOrder(
	ctx context.Context,
	snap cart.Snapshot,
	info cart.CustomerInfo,
	method payment.Method,
	note string,
) (string, error) {
	if err := snap.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := info.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if _, err := payment.ParseMethod(method.String()); err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}

	initial := status.Initial(method)
	items := make([]lineitem.LineItem, len(snap.Items))
	for i, it := range snap.Items {
		items[i] = lineitem.LineItem{
			ItemID:    it.ItemID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Vendor:    it.Vendor,
			ImageURL:  it.ImageURL,
			Status:    initial,
		}
	}

	o := order.Order{
		ID:            s.newID(),
		Code:          order.NewCode(),
		TableNumber:   snap.TableNumber,
		CustomerName:  info.Name,
		CustomerID:    info.ID,
		Note:          note,
		Items:         items,
		PaymentMethod: method,
		Version:       1,
		CreatedAt:     s.now(),
	}
	o.TotalAmount = o.Total()

	if err := o.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}

	event, err := outbox.NewOrderEventMessage(
		outbox.EventOrderCreated, o.ID, o.Code, o.Status().String(), o.CreatedAt,
	)
	if err != nil {
		return "", err
	}

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	if err := work.OrderRepository().Insert(ctx, o); err != nil {
		return "", err
	}
	if err := work.OrderItemRepository().BulkInsert(ctx, o.ID, o.Items); err != nil {
		return "", err
	}
	if err := work.OutboxRepository().Insert(ctx, event); err != nil {
		return "", err
	}

	if err := work.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.storeOrder(o)

	slog.Info("Order created", "order", o.String(), "status", o.Status(), "total", o.TotalAmount)

	return o.ID, nil
}

// UpdateItemStatus replaces the status of a single line item, leaving
// siblings untouched. A lost optimistic race triggers one refresh-and-retry
// before the conflict is surfaced.
func (s *OrderService) UpdateItemStatus(
	ctx context.Context,
	orderID string,
	itemID int64,
	newStatus status.Status,
) error {
	return s.updateItems(ctx, orderID, func(items []lineitem.LineItem) error {
		for i := range items {
			if items[i].ItemID == itemID {
				items[i].Status = newStatus

				return nil
			}
		}

		return fmt.Errorf("%w: line item %d in order %s", ErrNotFound, itemID, orderID)
	})
}

// UpdateOrderStatus sets every item in the order to newStatus. Used for the
// cash confirmation workflow: payment is taken once, all items jump together.
func (s *OrderService) UpdateOrderStatus(
	ctx context.Context,
	orderID string,
	newStatus status.Status,
) error {
	return s.updateItems(ctx, orderID, func(items []lineitem.LineItem) error {
		for i := range items {
			items[i].Status = newStatus
		}

		return nil
	})
}

// updateItems runs a serialized read-modify-write over the order's item
// list: mutate edits a copy of the items, which is then persisted under the
// order's version. Updates to one order never block another.
func (s *OrderService) updateItems(
	ctx context.Context,
	orderID string,
	mutate func(items []lineitem.LineItem) error,
) error {
	lock := s.orderLock(orderID)
	lock.Lock()
	defer lock.Unlock()

	attempt := func() error {
		o, ok := s.cachedOrder(orderID)
		if !ok {
			return fmt.Errorf("%w: order %s", ErrNotFound, orderID)
		}

		items := make([]lineitem.LineItem, len(o.Items))
		copy(items, o.Items)

		if err := mutate(items); err != nil {
			return err
		}

		return s.persistItems(ctx, o, items)
	}

	err := attempt()
	if !errors.Is(err, ErrConflict) {
		return err
	}

	// Someone else moved the order; reload their write and try once more.
	if err := s.refreshOrder(ctx, orderID); err != nil {
		return err
	}

	return attempt()
}

// persistItems writes the full item list under the order's version and
// records the status-change event in the same transaction.
func (s *OrderService) persistItems(ctx context.Context, o order.Order, items []lineitem.LineItem) error {
	event, err := outbox.NewOrderEventMessage(
		outbox.EventOrderStatusChanged,
		o.ID,
		o.Code,
		status.DeriveAggregate(lineitem.Statuses(items)).String(),
		s.now(),
	)
	if err != nil {
		return err
	}

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	if err := work.OrderRepository().ClaimVersion(ctx, o.ID, o.Version); err != nil {
		if errors.Is(err, iorderrepo.ErrVersionConflict) {
			return fmt.Errorf("%w: order %s version %d is stale", ErrConflict, o.ID, o.Version)
		}

		return err
	}
	if err := work.OrderItemRepository().ReplaceForOrder(ctx, o.ID, items); err != nil {
		return err
	}
	if err := work.OutboxRepository().Insert(ctx, event); err != nil {
		return err
	}

	if err := work.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	o.Items = items
	o.Version++
	s.storeOrder(o)

	return nil
}

// AddRating attaches a 1-5 rating to a completed, not yet rated order.
func (s *OrderService) AddRating(ctx context.Context, orderID string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating %d is out of range 1..5", ErrValidation, rating)
	}

	lock := s.orderLock(orderID)
	lock.Lock()
	defer lock.Unlock()

	o, ok := s.cachedOrder(orderID)
	if !ok {
		return fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if o.Status() != status.Completed {
		return fmt.Errorf("%w: order %s is not completed", ErrValidation, orderID)
	}
	if o.Rated() {
		return fmt.Errorf("%w: order %s already rated", ErrConflict, orderID)
	}

	event, err := outbox.NewOrderEventMessage(
		outbox.EventOrderRated, o.ID, o.Code, o.Status().String(), s.now(),
	)
	if err != nil {
		return err
	}

	work := s.uowFactory()
	if err := work.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	if err := work.OrderRepository().UpdateRating(ctx, orderID, rating); err != nil {
		if errors.Is(err, iorderrepo.ErrAlreadyRated) {
			return fmt.Errorf("%w: order %s already rated", ErrConflict, orderID)
		}

		return err
	}
	if err := work.OutboxRepository().Insert(ctx, event); err != nil {
		return err
	}

	if err := work.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	o.Rating = &rating
	s.storeOrder(o)

	return nil
}

// GetOrder returns the order with its aggregate status derived from the
// current items.
func (s *OrderService) GetOrder(orderID string) (*order.Order, error) {
	o, ok := s.cachedOrder(orderID)
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}

	return &o, nil
}

// GetVendorOrders returns the vendor's projection of every order carrying at
// least one of its items, newest first. Items and totals are vendor-scoped;
// the status stays the global aggregate.
func (s *OrderService) GetVendorOrders(vendor string) []order.VendorOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]order.VendorOrder, 0)
	for _, o := range s.orders {
		if view, ok := o.VendorView(vendor); ok {
			result = append(result, view)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result
}

// GetCustomerOrders returns a customer's own orders, newest first.
func (s *OrderService) GetCustomerOrders(customerID string) []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]order.Order, 0)
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			result = append(result, s.copyOrder(o))
		}
	}

	sortByCreatedAtDesc(result)

	return result
}

// refreshOrder reloads a single order from the repository into the cache.
func (s *OrderService) refreshOrder(ctx context.Context, orderID string) error {
	work := s.uowFactory()

	orders, err := work.OrderRepository().Query(ctx, &order.QueryOrdersModel{IDs: []string{orderID}})
	if err != nil {
		return fmt.Errorf("failed to query order: %w", err)
	}
	if len(orders) == 0 {
		return fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}

	itemsByOrder, err := work.OrderItemRepository().QueryByOrderIDs(ctx, []string{orderID})
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}

	o := orders[0]
	o.Items = itemsByOrder[o.ID]
	s.storeOrder(o)

	return nil
}

func (s *OrderService) cachedOrder(orderID string) (order.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return order.Order{}, false
	}

	return s.copyOrder(o), true
}

func (s *OrderService) storeOrder(o order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// copyOrder detaches the items slice so callers cannot mutate the cache.
func (s *OrderService) copyOrder(o order.Order) order.Order {
	items := make([]lineitem.LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items

	return o
}

func (s *OrderService) orderLock(orderID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lock, ok := s.orderLocks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		s.orderLocks[orderID] = lock
	}

	return lock
}

func sortByCreatedAtDesc(orders []order.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
