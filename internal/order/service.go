package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
	"github.com/Mucahit2020/order-management-go/internal/contracts"
	"github.com/Mucahit2020/order-management-go/internal/messaging"
)

// NewItem is one requested line of a new order.
type NewItem struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Service owns the order aggregate: it creates orders idempotently and moves
// them to a terminal status when the stock outcome arrives.
type Service struct {
	repo   Repository
	pub    messaging.EventPublisher
	logger *zap.Logger
}

func NewService(repo Repository, pub messaging.EventPublisher, logger *zap.Logger) *Service {
	return &Service{repo: repo, pub: pub, logger: logger}
}

// CreateOrder persists a new order and publishes OrderCreated. Repeated calls
// with the same idempotency key return the first order unchanged; the unique
// constraint on the key settles concurrent duplicates, and the loser fetches
// the winner instead of failing.
func (s *Service) CreateOrder(ctx context.Context, idempotencyKey string, customerID uuid.UUID, items []NewItem) (*Order, bool, error) {
	if idempotencyKey == "" {
		return nil, false, apperr.Validation("idempotency key is required")
	}
	if len(items) == 0 {
		return nil, false, apperr.Validation("order must contain at least one item")
	}

	if existing, err := s.repo.GetByIdempotencyKey(ctx, idempotencyKey); err != nil {
		return nil, false, fmt.Errorf("lookup by idempotency key: %w", err)
	} else if existing != nil {
		s.logger.Info("order already exists for idempotency key",
			zap.String("idempotency_key", idempotencyKey),
			zap.String("order_id", existing.ID.String()))
		return existing, false, nil
	}

	now := time.Now().UTC()
	o := &Order{
		ID:             uuid.New(),
		IdempotencyKey: idempotencyKey,
		CustomerID:     customerID,
		Status:         StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	total := decimal.Zero
	for _, it := range items {
		o.Items = append(o.Items, Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	o.TotalAmount = total

	if err := s.repo.Create(ctx, o); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			winner, lookupErr := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("fetch winning order: %w", lookupErr)
			}
			if winner == nil {
				return nil, false, fmt.Errorf("conflict on idempotency key %q but no order found", idempotencyKey)
			}
			return winner, false, nil
		}
		return nil, false, fmt.Errorf("create order: %w", err)
	}

	// The correlation id minted here threads the whole saga instance.
	correlationID := uuid.NewString()
	ev := contracts.NewOrderCreated(correlationID, o.ID, o.CustomerID, eventItems(o.Items), o.TotalAmount, o.CreatedAt)
	if err := s.pub.Publish(ctx, messaging.OrderCreatedRoutingKey, ev); err != nil {
		return nil, false, fmt.Errorf("publish OrderCreated: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.String("correlation_id", correlationID))
	return o, true, nil
}

func (s *Service) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

func (s *Service) GetOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

// HandleStockReduced completes the order and publishes OrderCompleted.
// Redeliveries after the order reached a terminal status are no-ops.
func (s *Service) HandleStockReduced(ctx context.Context, ev contracts.StockReduced) error {
	o, err := s.repo.GetByID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", ev.OrderID, err)
	}
	if o == nil {
		return apperr.NotFound("order %s not found for StockReduced", ev.OrderID)
	}
	if o.Status.Terminal() {
		s.logger.Info("order already terminal, ignoring StockReduced",
			zap.String("order_id", o.ID.String()),
			zap.String("status", string(o.Status)))
		return nil
	}

	ok, err := s.repo.TransitionStatus(ctx, o.ID, StatusCreated, StatusCompleted, "")
	if err != nil {
		return fmt.Errorf("complete order %s: %w", o.ID, err)
	}
	if !ok {
		// Another consumer instance won the transition.
		return nil
	}

	out := contracts.NewOrderCompleted(ev.CorrelationID, o.ID, o.CustomerID, o.TotalAmount)
	if err := s.pub.Publish(ctx, messaging.OrderCompletedRoutingKey, out); err != nil {
		return fmt.Errorf("publish OrderCompleted: %w", err)
	}

	s.logger.Info("order completed", zap.String("order_id", o.ID.String()))
	return nil
}

// HandleStockFailed fails the order and publishes OrderFailed.
func (s *Service) HandleStockFailed(ctx context.Context, ev contracts.StockFailed) error {
	o, err := s.repo.GetByID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", ev.OrderID, err)
	}
	if o == nil {
		return apperr.NotFound("order %s not found for StockFailed", ev.OrderID)
	}
	if o.Status.Terminal() {
		s.logger.Info("order already terminal, ignoring StockFailed",
			zap.String("order_id", o.ID.String()),
			zap.String("status", string(o.Status)))
		return nil
	}

	ok, err := s.repo.TransitionStatus(ctx, o.ID, StatusCreated, StatusFailed, ev.Reason)
	if err != nil {
		return fmt.Errorf("fail order %s: %w", o.ID, err)
	}
	if !ok {
		return nil
	}

	out := contracts.NewOrderFailed(ev.CorrelationID, o.ID, ev.Reason, contracts.FailureStockInsufficient)
	if err := s.pub.Publish(ctx, messaging.OrderFailedRoutingKey, out); err != nil {
		return fmt.Errorf("publish OrderFailed: %w", err)
	}

	s.logger.Info("order failed",
		zap.String("order_id", o.ID.String()),
		zap.String("reason", ev.Reason))
	return nil
}

func eventItems(items []Item) []contracts.OrderItem {
	out := make([]contracts.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, contracts.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return out
}
