package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names as they appear on the wire.
const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeStockReduced   = "StockReduced"
	EventTypeStockFailed    = "StockFailed"
	EventTypeOrderCompleted = "OrderCompleted"
	EventTypeOrderFailed    = "OrderFailed"
	EventTypeInvoiceCreated = "InvoiceCreated"
	EventTypeInvoiceFailed  = "InvoiceFailed"
)

// Stock movement types recorded in the ledger and carried on StockReduced.
const (
	MovementConsumed = "CONSUMED"
	MovementReserved = "RESERVED"
	MovementReleased = "RELEASED"
)

// Failure types carried on OrderFailed.
const (
	FailureStockInsufficient = "STOCK_INSUFFICIENT"
)

// Base is the shared envelope embedded in every event. The correlation id is
// minted once when the order is created and propagated through every event of
// the same saga instance.
type Base struct {
	EventID       uuid.UUID `json:"eventId"`
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"eventType"`
	CorrelationID string    `json:"correlationId"`
}

func newBase(eventType, correlationID string) Base {
	return Base{
		EventID:       uuid.New(),
		Timestamp:     time.Now().UTC(),
		EventType:     eventType,
		CorrelationID: correlationID,
	}
}

// OrderItem is the item contract shared by OrderCreated and the external
// invoicing boundary.
type OrderItem struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// StockMovementLine describes one applied stock mutation on StockReduced.
type StockMovementLine struct {
	ProductID    uuid.UUID `json:"productId"`
	ProductName  string    `json:"productName"`
	Quantity     int       `json:"quantity"`
	MovementType string    `json:"movementType"`
}

// InsufficientItem reports a shortfall with the actual remaining quantity.
type InsufficientItem struct {
	ProductID         uuid.UUID `json:"productId"`
	ProductName       string    `json:"productName"`
	RequestedQuantity int       `json:"requestedQuantity"`
	AvailableQuantity int       `json:"availableQuantity"`
}

type OrderCreated struct {
	Base
	OrderID     uuid.UUID       `json:"orderId"`
	CustomerID  uuid.UUID       `json:"customerId"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func NewOrderCreated(correlationID string, orderID, customerID uuid.UUID, items []OrderItem, totalAmount decimal.Decimal, createdAt time.Time) OrderCreated {
	return OrderCreated{
		Base:        newBase(EventTypeOrderCreated, correlationID),
		OrderID:     orderID,
		CustomerID:  customerID,
		Items:       items,
		TotalAmount: totalAmount,
		CreatedAt:   createdAt,
	}
}

type StockReduced struct {
	Base
	OrderID        uuid.UUID           `json:"orderId"`
	StockMovements []StockMovementLine `json:"stockMovements"`
	ProcessedAt    time.Time           `json:"processedAt"`
}

func NewStockReduced(correlationID string, orderID uuid.UUID, movements []StockMovementLine) StockReduced {
	return StockReduced{
		Base:           newBase(EventTypeStockReduced, correlationID),
		OrderID:        orderID,
		StockMovements: movements,
		ProcessedAt:    time.Now().UTC(),
	}
}

type StockFailed struct {
	Base
	OrderID           uuid.UUID          `json:"orderId"`
	Reason            string             `json:"reason"`
	InsufficientItems []InsufficientItem `json:"insufficientItems"`
	ProcessedAt       time.Time          `json:"processedAt"`
}

func NewStockFailed(correlationID string, orderID uuid.UUID, reason string, insufficient []InsufficientItem) StockFailed {
	return StockFailed{
		Base:              newBase(EventTypeStockFailed, correlationID),
		OrderID:           orderID,
		Reason:            reason,
		InsufficientItems: insufficient,
		ProcessedAt:       time.Now().UTC(),
	}
}

type OrderCompleted struct {
	Base
	OrderID     uuid.UUID       `json:"orderId"`
	CustomerID  uuid.UUID       `json:"customerId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CompletedAt time.Time       `json:"completedAt"`
}

func NewOrderCompleted(correlationID string, orderID, customerID uuid.UUID, totalAmount decimal.Decimal) OrderCompleted {
	return OrderCompleted{
		Base:        newBase(EventTypeOrderCompleted, correlationID),
		OrderID:     orderID,
		CustomerID:  customerID,
		TotalAmount: totalAmount,
		CompletedAt: time.Now().UTC(),
	}
}

type OrderFailed struct {
	Base
	OrderID     uuid.UUID `json:"orderId"`
	Reason      string    `json:"reason"`
	FailureType string    `json:"failureType"`
	FailedAt    time.Time `json:"failedAt"`
}

func NewOrderFailed(correlationID string, orderID uuid.UUID, reason, failureType string) OrderFailed {
	return OrderFailed{
		Base:        newBase(EventTypeOrderFailed, correlationID),
		OrderID:     orderID,
		Reason:      reason,
		FailureType: failureType,
		FailedAt:    time.Now().UTC(),
	}
}

type InvoiceCreated struct {
	Base
	OrderID       uuid.UUID       `json:"orderId"`
	InvoiceID     uuid.UUID       `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func NewInvoiceCreated(correlationID string, orderID, invoiceID uuid.UUID, invoiceNumber string, amount decimal.Decimal) InvoiceCreated {
	return InvoiceCreated{
		Base:          newBase(EventTypeInvoiceCreated, correlationID),
		OrderID:       orderID,
		InvoiceID:     invoiceID,
		InvoiceNumber: invoiceNumber,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}
}

type InvoiceFailed struct {
	Base
	OrderID  uuid.UUID `json:"orderId"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failedAt"`
}

func NewInvoiceFailed(correlationID string, orderID uuid.UUID, reason string) InvoiceFailed {
	return InvoiceFailed{
		Base:     newBase(EventTypeInvoiceFailed, correlationID),
		OrderID:  orderID,
		Reason:   reason,
		FailedAt: time.Now().UTC(),
	}
}
