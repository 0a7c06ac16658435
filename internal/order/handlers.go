package order

import (
	"context"
	"encoding/json"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
	"github.com/Mucahit2020/order-management-go/internal/contracts"
	"github.com/Mucahit2020/order-management-go/internal/messaging"
)

// StockReducedHandler returns the consumer handler for stock.reduced events.
func StockReducedHandler(svc *Service) messaging.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var ev contracts.StockReduced
		if err := json.Unmarshal(body, &ev); err != nil {
			return apperr.Validation("unmarshal StockReduced: %v", err)
		}
		return svc.HandleStockReduced(ctx, ev)
	}
}

// StockFailedHandler returns the consumer handler for stock.failed events.
func StockFailedHandler(svc *Service) messaging.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var ev contracts.StockFailed
		if err := json.Unmarshal(body, &ev); err != nil {
			return apperr.Validation("unmarshal StockFailed: %v", err)
		}
		return svc.HandleStockFailed(ctx, ev)
	}
}
