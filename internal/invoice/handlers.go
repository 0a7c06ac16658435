package invoice

import (
	"context"
	"encoding/json"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
	"github.com/Mucahit2020/order-management-go/internal/contracts"
	"github.com/Mucahit2020/order-management-go/internal/messaging"
)

// OrderCompletedHandler returns the consumer handler for order.completed events.
func OrderCompletedHandler(svc *Service) messaging.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var ev contracts.OrderCompleted
		if err := json.Unmarshal(body, &ev); err != nil {
			return apperr.Validation("unmarshal OrderCompleted: %v", err)
		}
		return svc.HandleOrderCompleted(ctx, ev)
	}
}
