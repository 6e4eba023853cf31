package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kantinku/order/internal/dal/interfaces/iorderrepo"
	"github.com/kantinku/order/internal/dal/postgres"
	"github.com/kantinku/order/internal/service/models/order"
	"github.com/kantinku/order/internal/service/models/payment"
)

// OrderDal represents order data access layer model.
type OrderDal struct {
	Id            string    `db:"id"`
	Code          string    `db:"code"`
	TableNumber   string    `db:"table_number"`
	CustomerName  string    `db:"customer_name"`
	CustomerId    string    `db:"customer_id"`
	Note          string    `db:"note"`
	TotalAmount   int64     `db:"total_amount"`
	PaymentMethod string    `db:"payment_method"`
	Rating        *int      `db:"rating"`
	Version       int64     `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

// ToModel converts OrderDal to service layer Order model.
func (o *OrderDal) ToModel() (*order.Order, error) {
	method, err := payment.ParseMethod(o.PaymentMethod)
	if err != nil {
		return nil, err
	}

	return &order.Order{
		ID:            o.Id,
		Code:          o.Code,
		TableNumber:   o.TableNumber,
		CustomerName:  o.CustomerName,
		CustomerID:    o.CustomerId,
		Note:          o.Note,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: method,
		Rating:        o.Rating,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
	}, nil
}

// OrderDalFromModel converts service layer Order model to OrderDal.
func OrderDalFromModel(o *order.Order) *OrderDal {
	return &OrderDal{
		Id:            o.ID,
		Code:          o.Code,
		TableNumber:   o.TableNumber,
		CustomerName:  o.CustomerName,
		CustomerId:    o.CustomerID,
		Note:          o.Note,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod.String(),
		Rating:        o.Rating,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
	}
}

// PostgresOrderRepository represents a Postgres order repository.
type PostgresOrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn postgres.GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert persists a new order row. Items are inserted separately by the
// order item repository within the same transaction.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o order.Order) error {
	dal := OrderDalFromModel(&o)

	sql, args, err := r.sb.Insert("orders").
		Columns(
			"id",
			"code",
			"table_number",
			"customer_name",
			"customer_id",
			"note",
			"total_amount",
			"payment_method",
			"version",
			"created_at",
		).
		Values(
			dal.Id,
			dal.Code,
			dal.TableNumber,
			dal.CustomerName,
			dal.CustomerId,
			dal.Note,
			dal.TotalAmount,
			dal.PaymentMethod,
			dal.Version,
			pgtype.Timestamptz{Time: dal.CreatedAt, Valid: true},
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// Query retrieves orders based on filter criteria, newest first.
func (r *PostgresOrderRepository) Query(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	query := r.sb.
		Select(
			"id",
			"code",
			"table_number",
			"customer_name",
			"customer_id",
			"note",
			"total_amount",
			"payment_method",
			"rating",
			"version",
			"created_at",
		).
		From("orders").
		OrderBy("created_at DESC")

	if len(filter.IDs) > 0 {
		query = query.Where(sq.Eq{"id": filter.IDs})
	}

	if len(filter.CustomerIDs) > 0 {
		query = query.Where(sq.Eq{"customer_id": filter.CustomerIDs})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var dal OrderDal
		var createdAt pgtype.Timestamptz

		err := rows.Scan(
			&dal.Id,
			&dal.Code,
			&dal.TableNumber,
			&dal.CustomerName,
			&dal.CustomerId,
			&dal.Note,
			&dal.TotalAmount,
			&dal.PaymentMethod,
			&dal.Rating,
			&dal.Version,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		dal.CreatedAt = createdAt.Time

		model, err := dal.ToModel()
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// ClaimVersion bumps the order's version iff it still equals the caller's
// snapshot. Zero rows affected means a concurrent writer got there first.
func (r *PostgresOrderRepository) ClaimVersion(ctx context.Context, orderID string, version int64) error {
	sql, args, err := r.sb.Update("orders").
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": orderID, "version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to claim order version: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return iorderrepo.ErrVersionConflict
	}

	return nil
}

// UpdateRating attaches a rating. The `rating IS NULL` guard makes the
// operation rate-once at the data layer as well as in the service.
func (r *PostgresOrderRepository) UpdateRating(ctx context.Context, orderID string, rating int) error {
	sql, args, err := r.sb.Update("orders").
		Set("rating", rating).
		Where(sq.Eq{"id": orderID, "rating": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return iorderrepo.ErrAlreadyRated
	}

	return nil
}
