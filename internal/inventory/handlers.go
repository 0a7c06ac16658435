package inventory

import (
	"context"
	"encoding/json"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
	"github.com/Mucahit2020/order-management-go/internal/contracts"
	"github.com/Mucahit2020/order-management-go/internal/messaging"
)

// OrderCreatedHandler returns the consumer handler for order.created events.
func OrderCreatedHandler(svc *Service) messaging.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var ev contracts.OrderCreated
		if err := json.Unmarshal(body, &ev); err != nil {
			return apperr.Validation("unmarshal OrderCreated: %v", err)
		}
		return svc.HandleOrderCreated(ctx, ev)
	}
}
