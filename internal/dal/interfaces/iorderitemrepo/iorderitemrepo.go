package iorderitemrepo

import (
	"context"

	"github.com/kantinku/order/internal/service/models/lineitem"
)

// IOrderItemRepository is an interface for the order item postgres repository.
type IOrderItemRepository interface {
	BulkInsert(ctx context.Context, orderID string, items []lineitem.LineItem) error

	// QueryByOrderIDs returns every order's items keyed by order id, each
	// list in cart order.
	QueryByOrderIDs(ctx context.Context, orderIDs []string) (map[string][]lineitem.LineItem, error)

	// ReplaceForOrder swaps the order's full item list. Callers must hold the
	// order's version via IOrderRepository.ClaimVersion in the same
	// transaction.
	ReplaceForOrder(ctx context.Context, orderID string, items []lineitem.LineItem) error
}
