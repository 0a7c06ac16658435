package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
)

const uniqueViolation = "23505"

type Repository interface {
	// Create persists a Pending invoice. A second invoice for the same order
	// surfaces as a conflict; the unique constraint on order_id is what
	// enforces at-most-one-invoice-per-order under concurrent consumers.
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, invoiceID uuid.UUID) (*Invoice, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	MarkCreated(ctx context.Context, invoiceID uuid.UUID, externalInvoiceID, externalReference string, processedAt time.Time) error
	MarkFailed(ctx context.Context, invoiceID uuid.UUID, reason string, processedAt time.Time) error
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, inv *Invoice) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (id, order_id, invoice_number, customer_id, amount, status, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.OrderID, inv.InvoiceNumber, inv.CustomerID, inv.Amount, inv.Status, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "invoices_order_id_key" {
				return apperr.Conflict("invoice already exists for order", err)
			}
			// Invoice number collision: retryable, a fresh number is drawn.
			return apperr.Transient("invoice number collision", err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, invoiceID uuid.UUID) (*Invoice, error) {
	return r.getOne(ctx, `WHERE id = $1`, invoiceID)
}

func (r *repo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	return r.getOne(ctx, `WHERE order_id = $1`, orderID)
}

func (r *repo) getOne(ctx context.Context, where string, arg any) (*Invoice, error) {
	var inv Invoice
	var processedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, invoice_number, customer_id, amount, status,
         COALESCE(external_invoice_id, ''), COALESCE(external_reference, ''), COALESCE(failure_reason, ''),
         created_at, updated_at, processed_at
         FROM invoices `+where, arg,
	).Scan(&inv.ID, &inv.OrderID, &inv.InvoiceNumber, &inv.CustomerID, &inv.Amount, &inv.Status,
		&inv.ExternalInvoiceID, &inv.ExternalReference, &inv.FailureReason,
		&inv.CreatedAt, &inv.UpdatedAt, &processedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select invoice: %w", err)
	}
	if processedAt.Valid {
		inv.ProcessedAt = &processedAt.Time
	}
	return &inv, nil
}

func (r *repo) MarkCreated(ctx context.Context, invoiceID uuid.UUID, externalInvoiceID, externalReference string, processedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invoices
         SET status = $2, external_invoice_id = $3, external_reference = $4, processed_at = $5, updated_at = now()
         WHERE id = $1`,
		invoiceID, StatusCreated, externalInvoiceID, externalReference, processedAt,
	)
	if err != nil {
		return fmt.Errorf("mark invoice created: %w", err)
	}
	return nil
}

func (r *repo) MarkFailed(ctx context.Context, invoiceID uuid.UUID, reason string, processedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invoices
         SET status = $2, failure_reason = $3, processed_at = $4, updated_at = now()
         WHERE id = $1`,
		invoiceID, StatusFailed, reason, processedAt,
	)
	if err != nil {
		return fmt.Errorf("mark invoice failed: %w", err)
	}
	return nil
}
