package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
	"github.com/Mucahit2020/order-management-go/internal/contracts"
	"github.com/Mucahit2020/order-management-go/internal/messaging"
)

const insufficientStockReason = "Insufficient stock"

// Service reacts to OrderCreated by decrementing stock all-or-nothing and
// emitting the outcome.
type Service struct {
	repo   Repository
	pub    messaging.EventPublisher
	logger *zap.Logger
}

func NewService(repo Repository, pub messaging.EventPublisher, logger *zap.Logger) *Service {
	return &Service{repo: repo, pub: pub, logger: logger}
}

// HandleOrderCreated validates availability, applies the decrements and
// publishes StockReduced or StockFailed. A redelivered order that already has
// movements in the ledger emits nothing.
func (s *Service) HandleOrderCreated(ctx context.Context, ev contracts.OrderCreated) error {
	if ev.OrderID == uuid.Nil {
		return apperr.Validation("missing orderId")
	}

	lines := make([]Line, 0, len(ev.Items))
	names := make(map[uuid.UUID]string, len(ev.Items))
	for _, it := range ev.Items {
		if it.ProductID == uuid.Nil || it.Quantity <= 0 {
			continue
		}
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: it.Quantity})
		names[it.ProductID] = it.ProductName
	}
	if len(lines) == 0 {
		return apperr.Validation("order %s carries no usable items", ev.OrderID)
	}

	processed, err := s.repo.OrderProcessed(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("check order %s: %w", ev.OrderID, err)
	}
	if processed {
		s.logger.Info("order already processed, ignoring redelivery",
			zap.String("order_id", ev.OrderID.String()))
		return nil
	}

	products, err := s.repo.GetProducts(ctx, productIDs(lines))
	if err != nil {
		return fmt.Errorf("fetch products for order %s: %w", ev.OrderID, err)
	}

	var shortfalls []Shortfall
	for _, line := range lines {
		available := 0
		if p, ok := products[line.ProductID]; ok {
			available = p.StockQuantity
		}
		if available < line.Quantity {
			shortfalls = append(shortfalls, Shortfall{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available,
			})
		}
	}
	if len(shortfalls) > 0 {
		return s.publishStockFailed(ctx, ev, shortfalls, names)
	}

	res, err := s.repo.ReduceStock(ctx, ev.OrderID, lines)
	if err != nil {
		return fmt.Errorf("reduce stock for order %s: %w", ev.OrderID, err)
	}
	if res.AlreadyProcessed {
		s.logger.Info("order already processed, ignoring redelivery",
			zap.String("order_id", ev.OrderID.String()))
		return nil
	}
	if len(res.Insufficient) > 0 {
		// The availability check passed but a conditional decrement lost a
		// race on a shared product; nothing was applied.
		return s.publishStockFailed(ctx, ev, res.Insufficient, names)
	}

	movements := make([]contracts.StockMovementLine, 0, len(lines))
	for _, line := range lines {
		movements = append(movements, contracts.StockMovementLine{
			ProductID:    line.ProductID,
			ProductName:  names[line.ProductID],
			Quantity:     line.Quantity,
			MovementType: contracts.MovementConsumed,
		})
	}

	out := contracts.NewStockReduced(ev.CorrelationID, ev.OrderID, movements)
	if err := s.pub.Publish(ctx, messaging.StockReducedRoutingKey, out); err != nil {
		return fmt.Errorf("publish StockReduced: %w", err)
	}

	s.logger.Info("stock reduced",
		zap.String("order_id", ev.OrderID.String()),
		zap.Int("lines", len(lines)))
	return nil
}

func (s *Service) publishStockFailed(ctx context.Context, ev contracts.OrderCreated, shortfalls []Shortfall, names map[uuid.UUID]string) error {
	items := make([]contracts.InsufficientItem, 0, len(shortfalls))
	for _, sf := range shortfalls {
		items = append(items, contracts.InsufficientItem{
			ProductID:         sf.ProductID,
			ProductName:       names[sf.ProductID],
			RequestedQuantity: sf.Requested,
			AvailableQuantity: sf.Available,
		})
	}

	out := contracts.NewStockFailed(ev.CorrelationID, ev.OrderID, insufficientStockReason, items)
	if err := s.pub.Publish(ctx, messaging.StockFailedRoutingKey, out); err != nil {
		return fmt.Errorf("publish StockFailed: %w", err)
	}

	s.logger.Info("stock insufficient",
		zap.String("order_id", ev.OrderID.String()),
		zap.Int("shortfalls", len(items)))
	return nil
}

func productIDs(lines []Line) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}
