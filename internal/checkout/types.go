// Package checkout implements the stateful session engine for an in-progress
// point-of-sale transaction: the TTL-backed session store, the lifecycle
// service orchestrating item/discount/payment mutations, and the HTTP
// surface. Pricing math lives in the pricing package; catalog facts and
// invoice creation are consumed through narrow contracts.
package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/glowdesk/backend-salon/internal/pricing"
)

// State is the session lifecycle position. A session is Active while the
// store holds it and Gone once completed or expired; Gone sessions are only
// ever observed as absence.
type State string

const (
	StateActive State = "active"
	StateGone   State = "gone"
)

// CustomerSnapshot is the customer identity captured at session start. It is
// a copy, not a reference: later customer edits never affect an open session.
type CustomerSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// DiscountOffer is an available-but-not-applied benefit surfaced at session
// start: a membership percentage, a package credit, or a loyalty balance.
// Offers are advisory; applying one goes through the regular discount flow.
type DiscountOffer struct {
	Type        pricing.DiscountType    `json:"type"`
	SourceID    string                  `json:"sourceId,omitempty"`
	Name        string                  `json:"name"`
	Calculation pricing.CalculationType `json:"calculation"`
	Value       decimal.Decimal         `json:"value"`
}

// Session is the aggregate root of one in-progress checkout. Each store
// write replaces the whole snapshot; Version increments on every write and
// backs the store's conditional put.
type Session struct {
	ID            string                    `json:"id"`
	TenantID      string                    `json:"tenantId"`
	BranchID      string                    `json:"branchId"`
	AppointmentID string                    `json:"appointmentId,omitempty"`
	Customer      *CustomerSnapshot         `json:"customer,omitempty"`
	Items         []pricing.LineItem        `json:"items"`
	Discounts     []pricing.AppliedDiscount `json:"discounts"`
	Payments      []pricing.PaymentEntry    `json:"payments"`
	Totals        pricing.Totals            `json:"totals"`
	Offers        []DiscountOffer           `json:"offers,omitempty"`
	IsIGST        bool                      `json:"isIgst"`
	TipAmount     decimal.Decimal           `json:"tipAmount"`
	Version       int64                     `json:"version"`
	CreatedAt     time.Time                 `json:"createdAt"`
	ExpiresAt     time.Time                 `json:"expiresAt"`
}

// State reports the lifecycle position as observable from a loaded snapshot.
func (s *Session) State() State {
	if s == nil || s.ID == "" {
		return StateGone
	}
	return StateActive
}

// CanComplete guards the only irreversible transition. The one-cent
// tolerance absorbs rounding drift between the grand total and tendered sum.
func (s *Session) CanComplete() error {
	if s.Totals.AmountDue.GreaterThan(decimal.New(1, -2)) {
		return errPaymentIncomplete(s.Totals.AmountDue)
	}
	if len(s.Items) == 0 {
		return errNoItems()
	}
	return nil
}

// recompute rebuilds the totals snapshot from scratch. Totals are never
// updated incrementally.
func (s *Session) recompute() {
	s.Totals = pricing.Aggregate(s.Items, s.Discounts, s.Payments, s.TipAmount)
}
