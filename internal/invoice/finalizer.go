// Package invoice is the durable side of a completed checkout. The engine
// hands a finalizer the session's items and payments exactly once; the
// finalizer owns its own transaction boundary and either records the whole
// sale or fails without side effects visible to the session.
package invoice

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/glowdesk/backend-salon/internal/pricing"
)

// ItemInput is one sold line translated from a session line item.
type ItemInput struct {
	ItemType    string          `json:"itemType"`
	ReferenceID string          `json:"referenceId"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	GrossAmount decimal.Decimal `json:"grossAmount"`
	TotalTax    decimal.Decimal `json:"totalTax"`
	NetAmount   decimal.Decimal `json:"netAmount"`
	StylistID   *string         `json:"stylistId,omitempty"`
	AssistantID *string         `json:"assistantId,omitempty"`
}

// PaymentInput is one tender recorded against the invoice.
type PaymentInput struct {
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	CardLastFour  string          `json:"cardLastFour,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
}

// CreateInput is the complete finalisation request.
type CreateInput struct {
	TenantID      string         `json:"tenantId"`
	BranchID      string         `json:"branchId"`
	CustomerID    string         `json:"customerId,omitempty"`
	AppointmentID string         `json:"appointmentId,omitempty"`
	Items         []ItemInput    `json:"items"`
	Payments      []PaymentInput `json:"payments"`
	Totals        pricing.Totals `json:"totals"`
}

// Finalizer durably records a completed sale and returns the invoice id.
type Finalizer interface {
	Create(ctx context.Context, in CreateInput) (string, error)
}
