package invoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
	"github.com/Mucahit2020/order-management-go/internal/contracts"
	"github.com/Mucahit2020/order-management-go/internal/messaging"
)

type fakeRepository struct {
	byID      map[uuid.UUID]*Invoice
	byOrderID map[uuid.UUID]*Invoice

	createErr error
}

func newFakeRepo() *fakeRepository {
	return &fakeRepository{
		byID:      make(map[uuid.UUID]*Invoice),
		byOrderID: make(map[uuid.UUID]*Invoice),
	}
}

func (f *fakeRepository) Create(ctx context.Context, inv *Invoice) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byOrderID[inv.OrderID]; ok {
		return apperr.Conflict("invoice already exists for order", nil)
	}
	cp := *inv
	f.byID[inv.ID] = &cp
	f.byOrderID[inv.OrderID] = &cp
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, invoiceID uuid.UUID) (*Invoice, error) {
	if inv, ok := f.byID[invoiceID]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	if inv, ok := f.byOrderID[orderID]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeRepository) MarkCreated(ctx context.Context, invoiceID uuid.UUID, externalInvoiceID, externalReference string, processedAt time.Time) error {
	inv, ok := f.byID[invoiceID]
	if !ok {
		return errors.New("invoice not found")
	}
	inv.Status = StatusCreated
	inv.ExternalInvoiceID = externalInvoiceID
	inv.ExternalReference = externalReference
	inv.ProcessedAt = &processedAt
	return nil
}

func (f *fakeRepository) MarkFailed(ctx context.Context, invoiceID uuid.UUID, reason string, processedAt time.Time) error {
	inv, ok := f.byID[invoiceID]
	if !ok {
		return errors.New("invoice not found")
	}
	inv.Status = StatusFailed
	inv.FailureReason = reason
	inv.ProcessedAt = &processedAt
	return nil
}

type fakeExternal struct {
	resp  ExternalInvoice
	err   error
	calls int
}

func (f *fakeExternal) CreateInvoice(ctx context.Context, req ExternalRequest) (ExternalInvoice, error) {
	f.calls++
	if f.err != nil {
		return ExternalInvoice{}, f.err
	}
	return f.resp, nil
}

type published struct {
	routingKey string
	event      any
}

type fakePublisher struct {
	published []published
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, event any) error {
	f.published = append(f.published, published{routingKey: routingKey, event: event})
	return nil
}

func newTestService(external *fakeExternal) (*Service, *fakeRepository, *fakePublisher) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewService(repo, external, pub, 5*time.Second, zap.NewNop())
	return svc, repo, pub
}

func orderCompleted() contracts.OrderCompleted {
	return contracts.NewOrderCompleted(uuid.NewString(), uuid.New(), uuid.New(), decimal.NewFromFloat(42.50))
}

func TestHandleOrderCompleted_CreatesInvoice(t *testing.T) {
	external := &fakeExternal{resp: ExternalInvoice{InvoiceID: "ABCD1234", Reference: "REF-ABCD1234"}}
	svc, repo, pub := newTestService(external)

	ev := orderCompleted()
	require.NoError(t, svc.HandleOrderCompleted(context.Background(), ev))

	inv := repo.byOrderID[ev.OrderID]
	require.NotNil(t, inv)
	require.Equal(t, StatusCreated, inv.Status)
	require.Equal(t, "ABCD1234", inv.ExternalInvoiceID)
	require.NotNil(t, inv.ProcessedAt)
	require.True(t, inv.Amount.Equal(ev.TotalAmount))

	require.Len(t, pub.published, 1)
	require.Equal(t, messaging.InvoiceCreatedRoutingKey, pub.published[0].routingKey)
	out := pub.published[0].event.(contracts.InvoiceCreated)
	require.Equal(t, ev.CorrelationID, out.CorrelationID)
	require.Equal(t, ev.OrderID, out.OrderID)
	require.Equal(t, inv.InvoiceNumber, out.InvoiceNumber)
}

func TestHandleOrderCompleted_ExternalFailureResolvesTerminally(t *testing.T) {
	external := &fakeExternal{err: apperr.External("external invoice service temporarily unavailable", nil)}
	svc, repo, pub := newTestService(external)

	ev := orderCompleted()
	require.NoError(t, svc.HandleOrderCompleted(context.Background(), ev))

	inv := repo.byOrderID[ev.OrderID]
	require.NotNil(t, inv)
	require.Equal(t, StatusFailed, inv.Status)
	require.NotEmpty(t, inv.FailureReason)

	require.Len(t, pub.published, 1)
	require.Equal(t, messaging.InvoiceFailedRoutingKey, pub.published[0].routingKey)
	out := pub.published[0].event.(contracts.InvoiceFailed)
	require.Equal(t, ev.CorrelationID, out.CorrelationID)
}

func TestHandleOrderCompleted_RedeliveryAfterSettlementIsNoop(t *testing.T) {
	external := &fakeExternal{resp: ExternalInvoice{InvoiceID: "ABCD1234"}}
	svc, _, pub := newTestService(external)

	ev := orderCompleted()
	require.NoError(t, svc.HandleOrderCompleted(context.Background(), ev))
	require.NoError(t, svc.HandleOrderCompleted(context.Background(), ev))

	require.Equal(t, 1, external.calls)
	require.Len(t, pub.published, 1)
}

func TestHandleOrderCompleted_ResumesPendingInvoice(t *testing.T) {
	external := &fakeExternal{resp: ExternalInvoice{InvoiceID: "ABCD1234", Reference: "REF-ABCD1234"}}
	svc, repo, pub := newTestService(external)

	// A previous delivery persisted the row and died before the external
	// call finished.
	ev := orderCompleted()
	pending := &Invoice{
		ID:            uuid.New(),
		OrderID:       ev.OrderID,
		InvoiceNumber: "INV-20260101-0042",
		CustomerID:    ev.CustomerID,
		Amount:        ev.TotalAmount,
		Status:        StatusPending,
	}
	repo.byID[pending.ID] = pending
	repo.byOrderID[pending.OrderID] = pending

	require.NoError(t, svc.HandleOrderCompleted(context.Background(), ev))

	require.Equal(t, 1, external.calls)
	require.Equal(t, StatusCreated, repo.byID[pending.ID].Status)

	require.Len(t, pub.published, 1)
	out := pub.published[0].event.(contracts.InvoiceCreated)
	require.Equal(t, "INV-20260101-0042", out.InvoiceNumber)
}

func TestHandleOrderCompleted_ConcurrentInsertLosesQuietly(t *testing.T) {
	external := &fakeExternal{resp: ExternalInvoice{InvoiceID: "ABCD1234"}}
	svc, repo, pub := newTestService(external)

	// The lookup missed but the insert conflicted: another consumer owns
	// the order.
	repo.createErr = apperr.Conflict("invoice already exists for order", nil)

	require.NoError(t, svc.HandleOrderCompleted(context.Background(), orderCompleted()))
	require.Zero(t, external.calls)
	require.Empty(t, pub.published)
}

func TestHandleOrderCompleted_CancelledExternalCallStaysPending(t *testing.T) {
	external := &fakeExternal{err: context.DeadlineExceeded}
	svc, repo, pub := newTestService(external)

	ev := orderCompleted()
	err := svc.HandleOrderCompleted(context.Background(), ev)
	require.Error(t, err)
	require.Equal(t, apperr.KindTransient, apperr.KindOf(err))

	// The invoice survives as Pending so the redelivery can resume it.
	inv := repo.byOrderID[ev.OrderID]
	require.NotNil(t, inv)
	require.Equal(t, StatusPending, inv.Status)
	require.Empty(t, pub.published)
}
