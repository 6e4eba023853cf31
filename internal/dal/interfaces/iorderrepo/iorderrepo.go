package iorderrepo

import (
	"context"
	"errors"

	"github.com/kantinku/order/internal/service/models/order"
)

var (
	// ErrVersionConflict is returned when an optimistic update loses the
	// race: the order's version no longer matches the caller's snapshot.
	ErrVersionConflict = errors.New("order version conflict")
	// ErrAlreadyRated is returned when a rating update hits an order that
	// already carries one.
	ErrAlreadyRated = errors.New("order already rated")
	// ErrOrderNotFound is returned when an update references an unknown order.
	ErrOrderNotFound = errors.New("order not found")
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	Insert(ctx context.Context, o order.Order) error
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)

	// ClaimVersion bumps the order's version iff it still equals the given
	// value. Serializes whole-item-list rewrites: the losing writer gets
	// ErrVersionConflict instead of silently overwriting.
	ClaimVersion(ctx context.Context, orderID string, version int64) error

	// UpdateRating attaches a rating iff none exists yet.
	UpdateRating(ctx context.Context, orderID string, rating int) error
}
