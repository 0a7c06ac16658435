package invoice

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Mucahit2020/order-management-go/internal/apperr"
	"github.com/Mucahit2020/order-management-go/internal/contracts"
)

// ExternalRequest is the payload sent to the billing collaborator.
type ExternalRequest struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	Items      []contracts.OrderItem
}

// ExternalInvoice is the collaborator's successful response.
type ExternalInvoice struct {
	InvoiceID     string
	InvoiceNumber string
	Reference     string
}

// ExternalClient is the contract of the billing collaborator. It may succeed,
// return a business failure (apperr.KindExternal) or fail with the caller's
// context error on timeout/cancellation.
type ExternalClient interface {
	CreateInvoice(ctx context.Context, req ExternalRequest) (ExternalInvoice, error)
}

// MockExternalClient simulates the billing collaborator: a fixed latency and
// a configurable business-failure rate.
type MockExternalClient struct {
	latency     time.Duration
	failureRate float64
	logger      *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockExternalClient(latency time.Duration, failureRate float64, logger *zap.Logger) *MockExternalClient {
	return &MockExternalClient{
		latency:     latency,
		failureRate: failureRate,
		logger:      logger,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *MockExternalClient) CreateInvoice(ctx context.Context, req ExternalRequest) (ExternalInvoice, error) {
	select {
	case <-ctx.Done():
		return ExternalInvoice{}, ctx.Err()
	case <-time.After(c.latency):
	}

	c.mu.Lock()
	failed := c.rng.Float64() < c.failureRate
	c.mu.Unlock()

	if failed {
		c.logger.Warn("external invoice creation failed",
			zap.String("order_id", req.OrderID.String()))
		return ExternalInvoice{}, apperr.External("external invoice service temporarily unavailable", nil)
	}

	externalID := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	resp := ExternalInvoice{
		InvoiceID:     externalID,
		InvoiceNumber: fmt.Sprintf("EXT-%s-%04d", time.Now().UTC().Format("20060102"), c.intn(9000)+1000),
		Reference:     "REF-" + externalID,
	}

	c.logger.Info("external invoice created",
		zap.String("order_id", req.OrderID.String()),
		zap.String("external_invoice_id", resp.InvoiceID))
	return resp, nil
}

func (c *MockExternalClient) intn(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Intn(n)
}
