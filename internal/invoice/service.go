package invoice

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
	"github.com/Mucahit2020/order-management-go/internal/contracts"
	"github.com/Mucahit2020/order-management-go/internal/messaging"
)

// Service reacts to OrderCompleted by creating exactly one invoice per order
// through an unreliable external billing collaborator.
type Service struct {
	repo            Repository
	external        ExternalClient
	pub             messaging.EventPublisher
	logger          *zap.Logger
	externalTimeout time.Duration
}

func NewService(repo Repository, external ExternalClient, pub messaging.EventPublisher, externalTimeout time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:            repo,
		external:        external,
		pub:             pub,
		logger:          logger,
		externalTimeout: externalTimeout,
	}
}

// HandleOrderCompleted creates the invoice for the completed order. The
// Pending row is persisted before the external call so a crash in between
// leaves a recoverable record instead of a lost invoice. Every accepted event
// ends in exactly one of InvoiceCreated or InvoiceFailed; a delivery that
// dies mid-flight leaves Pending and is finished on redelivery.
func (s *Service) HandleOrderCompleted(ctx context.Context, ev contracts.OrderCompleted) error {
	existing, err := s.repo.GetByOrderID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("lookup invoice for order %s: %w", ev.OrderID, err)
	}

	var inv *Invoice
	switch {
	case existing == nil:
		now := time.Now().UTC()
		inv = &Invoice{
			ID:            uuid.New(),
			OrderID:       ev.OrderID,
			InvoiceNumber: generateInvoiceNumber(),
			CustomerID:    ev.CustomerID,
			Amount:        ev.TotalAmount,
			Status:        StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Create(ctx, inv); err != nil {
			if apperr.IsKind(err, apperr.KindConflict) {
				// A concurrent consumer inserted first; its delivery owns
				// the external call.
				s.logger.Info("invoice already exists for order",
					zap.String("order_id", ev.OrderID.String()))
				return nil
			}
			return fmt.Errorf("create invoice: %w", err)
		}
	case existing.Status == StatusPending:
		// An earlier delivery persisted the row but never finished the
		// external call. Resume it so the saga terminates observably.
		inv = existing
		s.logger.Info("resuming pending invoice",
			zap.String("order_id", ev.OrderID.String()),
			zap.String("invoice_id", inv.ID.String()))
	default:
		s.logger.Info("invoice already settled for order",
			zap.String("order_id", ev.OrderID.String()),
			zap.String("status", string(existing.Status)))
		return nil
	}

	extCtx, cancel := context.WithTimeout(ctx, s.externalTimeout)
	defer cancel()

	resp, extErr := s.external.CreateInvoice(extCtx, ExternalRequest{
		OrderID:    ev.OrderID,
		CustomerID: ev.CustomerID,
		Amount:     ev.TotalAmount,
	})

	switch {
	case extErr == nil:
		processedAt := time.Now().UTC()
		if err := s.repo.MarkCreated(ctx, inv.ID, resp.InvoiceID, resp.Reference, processedAt); err != nil {
			return fmt.Errorf("mark invoice created: %w", err)
		}
		out := contracts.NewInvoiceCreated(ev.CorrelationID, inv.OrderID, inv.ID, inv.InvoiceNumber, inv.Amount)
		if err := s.pub.Publish(ctx, messaging.InvoiceCreatedRoutingKey, out); err != nil {
			return fmt.Errorf("publish InvoiceCreated: %w", err)
		}
		s.logger.Info("invoice created",
			zap.String("order_id", inv.OrderID.String()),
			zap.String("invoice_number", inv.InvoiceNumber))
		return nil

	case errors.Is(extErr, context.Canceled) || errors.Is(extErr, context.DeadlineExceeded):
		// The call was cut off by the handler's lifetime; the invoice stays
		// Pending and the redelivery resumes it.
		return apperr.Transient("external invoice call cancelled", extErr)

	default:
		// Business failure or an unexpected error from the collaborator:
		// resolve terminally so the saga never ends silently.
		reason := extErr.Error()
		processedAt := time.Now().UTC()
		if err := s.repo.MarkFailed(ctx, inv.ID, reason, processedAt); err != nil {
			return fmt.Errorf("mark invoice failed: %w", err)
		}
		out := contracts.NewInvoiceFailed(ev.CorrelationID, inv.OrderID, reason)
		if err := s.pub.Publish(ctx, messaging.InvoiceFailedRoutingKey, out); err != nil {
			return fmt.Errorf("publish InvoiceFailed: %w", err)
		}
		s.logger.Warn("invoice failed",
			zap.String("order_id", inv.OrderID.String()),
			zap.String("reason", reason))
		return nil
	}
}

func (s *Service) GetInvoiceByID(ctx context.Context, invoiceID uuid.UUID) (*Invoice, error) {
	return s.repo.GetByID(ctx, invoiceID)
}

func (s *Service) GetInvoiceByOrderID(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

func generateInvoiceNumber() string {
	return fmt.Sprintf("INV-%s-%04d", time.Now().UTC().Format("20060102"), rand.Intn(9000)+1000)
}
