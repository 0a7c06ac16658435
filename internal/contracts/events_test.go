package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCorrelationThreadsThroughSaga(t *testing.T) {
	correlationID := uuid.NewString()
	orderID := uuid.New()
	customerID := uuid.New()

	created := NewOrderCreated(correlationID, orderID, customerID, nil, decimal.NewFromInt(10), time.Now())
	reduced := NewStockReduced(created.CorrelationID, orderID, nil)
	completed := NewOrderCompleted(reduced.CorrelationID, orderID, customerID, decimal.NewFromInt(10))
	invoiced := NewInvoiceCreated(completed.CorrelationID, orderID, uuid.New(), "INV-20260101-0001", decimal.NewFromInt(10))

	for _, got := range []string{created.CorrelationID, reduced.CorrelationID, completed.CorrelationID, invoiced.CorrelationID} {
		require.Equal(t, correlationID, got)
	}

	// Every event keeps its own identity.
	ids := map[uuid.UUID]bool{created.EventID: true, reduced.EventID: true, completed.EventID: true, invoiced.EventID: true}
	require.Len(t, ids, 4)
}

func TestNewOrderCreatedEnvelope(t *testing.T) {
	ev := NewOrderCreated(uuid.NewString(), uuid.New(), uuid.New(), []OrderItem{
		{ProductID: uuid.New(), ProductName: "widget", Quantity: 2, UnitPrice: decimal.NewFromFloat(9.99)},
	}, decimal.NewFromFloat(19.98), time.Now())

	require.Equal(t, EventTypeOrderCreated, ev.EventType)
	require.NotEqual(t, uuid.Nil, ev.EventID)
	require.NotEmpty(t, ev.CorrelationID)
	require.False(t, ev.Timestamp.IsZero())
}

func TestStockFailedWireShape(t *testing.T) {
	productID := uuid.New()
	ev := NewStockFailed(uuid.NewString(), uuid.New(), "Insufficient stock", []InsufficientItem{
		{ProductID: productID, ProductName: "widget", RequestedQuantity: 5, AvailableQuantity: 2},
	})

	body, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))

	for _, key := range []string{"eventId", "timestamp", "eventType", "correlationId", "orderId", "reason", "insufficientItems", "processedAt"} {
		require.Contains(t, raw, key)
	}

	items := raw["insufficientItems"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	require.Equal(t, float64(5), item["requestedQuantity"])
	require.Equal(t, float64(2), item["availableQuantity"])
}

func TestStockFailedRoundTrip(t *testing.T) {
	ev := NewStockFailed(uuid.NewString(), uuid.New(), "Insufficient stock", []InsufficientItem{
		{ProductID: uuid.New(), ProductName: "widget", RequestedQuantity: 3, AvailableQuantity: 1},
	})

	body, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded StockFailed
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, ev.CorrelationID, decoded.CorrelationID)
	require.Equal(t, ev.OrderID, decoded.OrderID)
	require.Equal(t, ev.InsufficientItems, decoded.InsufficientItems)
}
