package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
)

const uniqueViolation = "23505"

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	// TransitionStatus moves the order from one status to another, guarded at
	// the storage layer. It reports false when the order was not in the
	// expected status, which makes redeliveries and racing consumers no-ops.
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to Status, reason string) (bool, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

// Create persists the order and its items in one transaction. A duplicate
// idempotency key surfaces as a conflict so the caller can fetch and return
// the winner.
func (r *repo) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, idempotency_key, customer_id, total_amount, status, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.IdempotencyKey, o.CustomerID, o.TotalAmount, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperr.Conflict("order already exists for idempotency key", err)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return r.getOne(ctx, `SELECT id, idempotency_key, customer_id, total_amount, status,
        COALESCE(failure_reason, ''), created_at, updated_at
        FROM orders WHERE id = $1`, orderID)
}

func (r *repo) GetByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	return r.getOne(ctx, `SELECT id, idempotency_key, customer_id, total_amount, status,
        COALESCE(failure_reason, ''), created_at, updated_at
        FROM orders WHERE idempotency_key = $1`, key)
}

func (r *repo) getOne(ctx context.Context, query string, arg any) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&o.ID, &o.IdempotencyKey, &o.CustomerID, &o.TotalAmount, &o.Status,
		&o.FailureReason, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repo) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, product_name, quantity, unit_price
         FROM order_items WHERE order_id = $1`,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return fmt.Errorf("scan order_item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *repo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, idempotency_key, customer_id, total_amount, status,
         COALESCE(failure_reason, ''), created_at, updated_at
         FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.IdempotencyKey, &o.CustomerID, &o.TotalAmount, &o.Status,
			&o.FailureReason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *repo) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to Status, reason string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
         SET status = $2, failure_reason = NULLIF($3, ''), updated_at = now()
         WHERE id = $1 AND status = $4`,
		orderID, to, reason, from,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
