package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestImmediateRetryBackoff(t *testing.T) {
	policy := ImmediateRetry(5)
	for attempt := 1; attempt <= 5; attempt++ {
		require.Equal(t, time.Duration(0), policy.Backoff(attempt))
	}
}

func TestExponentialRetryBackoff(t *testing.T) {
	policy := ExponentialRetry(5, time.Second, 30*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, policy.Backoff(tc.attempt), "attempt %d", tc.attempt)
	}
}

func TestQueueNames(t *testing.T) {
	q := ServiceQueue("order-service", StockReducedRoutingKey)
	require.Equal(t, "order-service.stock.reduced.v1", q)
	require.Equal(t, "order-service.stock.reduced.v1.parked", ParkedQueue(q))
}
