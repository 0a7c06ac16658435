package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "Pending"
	StatusCreated Status = "Created"
	StatusFailed  Status = "Failed"
)

type Invoice struct {
	ID                uuid.UUID       `json:"id"`
	OrderID           uuid.UUID       `json:"orderId"`
	InvoiceNumber     string          `json:"invoiceNumber"`
	CustomerID        uuid.UUID       `json:"customerId"`
	Amount            decimal.Decimal `json:"amount"`
	Status            Status          `json:"status"`
	ExternalInvoiceID string          `json:"externalInvoiceId,omitempty"`
	ExternalReference string          `json:"externalReference,omitempty"`
	FailureReason     string          `json:"failureReason,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	ProcessedAt       *time.Time      `json:"processedAt,omitempty"`
}
