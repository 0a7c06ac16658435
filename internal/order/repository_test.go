package order

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
)

func testOrder() *Order {
	now := time.Now().UTC()
	return &Order{
		ID:             uuid.New(),
		IdempotencyKey: "key-1",
		CustomerID:     uuid.New(),
		TotalAmount:    decimal.NewFromFloat(25.50),
		Status:         StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
		Items: []Item{
			{ProductID: uuid.New(), ProductName: "widget", Quantity: 1, UnitPrice: decimal.NewFromFloat(10.00)},
			{ProductID: uuid.New(), ProductName: "gadget", Quantity: 2, UnitPrice: decimal.NewFromFloat(7.75)},
		},
	}
}

func TestRepositoryCreate_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	o := testOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders (id, idempotency_key, customer_id, total_amount, status, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`)).
		WithArgs(o.ID, o.IdempotencyKey, o.CustomerID, o.TotalAmount, o.Status, o.CreatedAt, o.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	for _, it := range o.Items {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price)
             VALUES ($1, $2, $3, $4, $5, $6)`)).
			WithArgs(sqlmock.AnyArg(), o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	mock.ExpectCommit()

	require.NoError(t, repo.Create(ctx, o))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreate_DuplicateIdempotencyKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	o := testOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_idempotency_key_key"})
	mock.ExpectRollback()

	err = repo.Create(context.Background(), o)
	require.Error(t, err)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreate_ItemInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	o := testOrder()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items`)).
		WillReturnError(errors.New("item insert failed"))
	mock.ExpectRollback()

	err = repo.Create(context.Background(), o)
	require.Error(t, err)
	require.False(t, apperr.IsKind(err, apperr.KindConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	orderID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, idempotency_key, customer_id, total_amount, status,`)).
		WithArgs(orderID).
		WillReturnError(sql.ErrNoRows)

	o, err := repo.GetByID(context.Background(), orderID)
	require.NoError(t, err)
	require.Nil(t, o)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryTransitionStatus(t *testing.T) {
	tests := map[string]struct {
		rowsAffected int64
		want         bool
	}{
		"order in expected status": {rowsAffected: 1, want: true},
		"order already moved":      {rowsAffected: 0, want: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewRepository(db)
			orderID := uuid.New()

			mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders
         SET status = $2, failure_reason = NULLIF($3, ''), updated_at = now()
         WHERE id = $1 AND status = $4`)).
				WithArgs(orderID, StatusCompleted, "", StatusCreated).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))

			ok, err := repo.TransitionStatus(context.Background(), orderID, StatusCreated, StatusCompleted, "")
			require.NoError(t, err)
			require.Equal(t, tc.want, ok)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
