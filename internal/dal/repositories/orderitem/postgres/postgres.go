package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/kantinku/order/internal/dal/postgres"
	"github.com/kantinku/order/internal/service/models/lineitem"
	"github.com/kantinku/order/internal/service/models/status"
)

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	OrderId   string `db:"order_id"`
	ItemId    int64  `db:"item_id"`
	Name      string `db:"name"`
	UnitPrice int64  `db:"unit_price"`
	Quantity  int    `db:"quantity"`
	Vendor    string `db:"vendor"`
	ImageUrl  string `db:"image_url"`
	Status    string `db:"status"`
	Position  int    `db:"position"`
}

// ToModel converts OrderItemDal to service layer LineItem model.
func (oi *OrderItemDal) ToModel() (*lineitem.LineItem, error) {
	st, err := status.ParseStatus(oi.Status)
	if err != nil {
		return nil, err
	}

	return &lineitem.LineItem{
		ItemID:    oi.ItemId,
		Name:      oi.Name,
		UnitPrice: oi.UnitPrice,
		Quantity:  oi.Quantity,
		Vendor:    oi.Vendor,
		ImageURL:  oi.ImageUrl,
		Status:    st,
	}, nil
}

// PostgresOrderItemRepository represents a Postgres order item repository.
type PostgresOrderItemRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderItemRepository creates a new Postgres order item repository.
func NewPostgresOrderItemRepository(conn postgres.GenericConn) *PostgresOrderItemRepository {
	return &PostgresOrderItemRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// BulkInsert inserts an order's full item list. Position preserves cart order.
func (r *PostgresOrderItemRepository) BulkInsert(
	ctx context.Context,
	orderID string,
	items []lineitem.LineItem,
) error {
	if len(items) == 0 {
		return nil
	}

	query := r.sb.Insert("order_items").
		Columns(
			"order_id",
			"item_id",
			"name",
			"unit_price",
			"quantity",
			"vendor",
			"image_url",
			"status",
			"position",
		)

	for i, li := range items {
		query = query.Values(
			orderID,
			li.ItemID,
			li.Name,
			li.UnitPrice,
			li.Quantity,
			li.Vendor,
			li.ImageURL,
			li.Status.String(),
			i,
		)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to bulk insert order items: %w", err)
	}

	return nil
}

// QueryByOrderIDs retrieves the items of every listed order, keyed by order
// id, each list in cart order.
func (r *PostgresOrderItemRepository) QueryByOrderIDs(
	ctx context.Context,
	orderIDs []string,
) (map[string][]lineitem.LineItem, error) {
	result := make(map[string][]lineitem.LineItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	sql, args, err := r.sb.
		Select(
			"order_id",
			"item_id",
			"name",
			"unit_price",
			"quantity",
			"vendor",
			"image_url",
			"status",
			"position",
		).
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("order_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dal OrderItemDal

		err := rows.Scan(
			&dal.OrderId,
			&dal.ItemId,
			&dal.Name,
			&dal.UnitPrice,
			&dal.Quantity,
			&dal.Vendor,
			&dal.ImageUrl,
			&dal.Status,
			&dal.Position,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order item dal to model: %w", err)
		}
		result[dal.OrderId] = append(result[dal.OrderId], *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// ReplaceForOrder swaps the order's full item list. Runs inside the unit of
// work that already claimed the order's version.
func (r *PostgresOrderItemRepository) ReplaceForOrder(
	ctx context.Context,
	orderID string,
	items []lineitem.LineItem,
) error {
	sql, args, err := r.sb.Delete("order_items").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}

	return r.BulkInsert(ctx, orderID, items)
}
