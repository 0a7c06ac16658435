package inventory

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	StockQuantity int       `json:"stockQuantity"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// StockMovement is one row of the append-only ledger. A movement keyed by an
// order id doubles as the idempotency witness for that order.
type StockMovement struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"productId"`
	OrderID          uuid.UUID `json:"orderId"`
	MovementType     string    `json:"movementType"`
	Quantity         int       `json:"quantity"`
	PreviousQuantity int       `json:"previousQuantity"`
	NewQuantity      int       `json:"newQuantity"`
	Reason           string    `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Line is one requested decrement of an order.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}
