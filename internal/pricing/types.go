// Package pricing implements the numeric pipeline of a checkout session:
// unit pricing, GST splitting, discount magnitude, commission attribution
// and totals aggregation. Every function here is pure; persistence and
// identity belong to the checkout package.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/glowdesk/backend-salon/internal/catalog"
)

// DiscountType classifies where a discount originated.
type DiscountType string

const (
	DiscountMembership DiscountType = "membership"
	DiscountPackage    DiscountType = "package"
	DiscountCoupon     DiscountType = "coupon"
	DiscountLoyalty    DiscountType = "loyalty"
	DiscountManual     DiscountType = "manual"
)

// CalculationType selects how a discount value is interpreted.
type CalculationType string

const (
	CalcPercentage CalculationType = "percentage"
	CalcFlat       CalculationType = "flat"
)

// Valid reports whether the calculation type is known.
func (c CalculationType) Valid() bool {
	return c == CalcPercentage || c == CalcFlat
}

// DiscountScope selects what a discount applies to.
type DiscountScope string

const (
	ScopeSubtotal DiscountScope = "subtotal"
	ScopeItem     DiscountScope = "item"
)

// Valid reports whether the scope is known.
func (s DiscountScope) Valid() bool {
	return s == ScopeSubtotal || s == ScopeItem
}

// PaymentMethod enumerates the accepted tenders.
type PaymentMethod string

const (
	PayCash    PaymentMethod = "cash"
	PayCard    PaymentMethod = "card"
	PayUPI     PaymentMethod = "upi"
	PayWallet  PaymentMethod = "wallet"
	PayLoyalty PaymentMethod = "loyalty"
)

// Valid reports whether the payment method is known.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PayCash, PayCard, PayUPI, PayWallet, PayLoyalty:
		return true
	}
	return false
}

// LineItem is one priced catalog reference on a session. NetAmount always
// equals TaxableAmount + TotalTax, and TotalTax always equals
// CGST + SGST + IGST; exactly one side of the CGST/SGST pair or IGST is
// non-zero, fixed by the session's inter-state flag when the item was added.
type LineItem struct {
	ID               string           `json:"id"`
	Type             catalog.ItemType `json:"type"`
	ReferenceID      string           `json:"referenceId"`
	Name             string           `json:"name"`
	SKU              string           `json:"sku,omitempty"`
	HSNCode          string           `json:"hsnCode,omitempty"`
	UnitPrice        decimal.Decimal  `json:"unitPrice"`
	Quantity         int              `json:"quantity"`
	GrossAmount      decimal.Decimal  `json:"grossAmount"`
	DiscountAmount   decimal.Decimal  `json:"discountAmount"`
	TaxRate          decimal.Decimal  `json:"taxRate"`
	CGSTAmount       decimal.Decimal  `json:"cgstAmount"`
	SGSTAmount       decimal.Decimal  `json:"sgstAmount"`
	IGSTAmount       decimal.Decimal  `json:"igstAmount"`
	TaxableAmount    decimal.Decimal  `json:"taxableAmount"`
	TotalTax         decimal.Decimal  `json:"totalTax"`
	NetAmount        decimal.Decimal  `json:"netAmount"`
	StylistID        *string          `json:"stylistId,omitempty"`
	AssistantID      *string          `json:"assistantId,omitempty"`
	CommissionType   string           `json:"commissionType,omitempty"`
	CommissionRate   decimal.Decimal  `json:"commissionRate"`
	CommissionAmount decimal.Decimal  `json:"commissionAmount"`
}

// AppliedDiscount is one discount instance on a session. Amount is always
// non-negative; item-scoped flat discounts are capped at the target item's
// gross amount.
type AppliedDiscount struct {
	ID            string          `json:"id"`
	Type          DiscountType    `json:"type"`
	SourceID      string          `json:"sourceId,omitempty"`
	Calculation   CalculationType `json:"calculation"`
	Value         decimal.Decimal `json:"value"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedTo     DiscountScope   `json:"appliedTo"`
	AppliedItemID string          `json:"appliedItemId,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// PaymentEntry is one tender on a session. Totals are not validated at
// entry time; only completion enforces the balance invariant.
type PaymentEntry struct {
	ID            string          `json:"id"`
	Method        PaymentMethod   `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	CardLastFour  string          `json:"cardLastFour,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// Totals is the derived snapshot recomputed in full after every mutation.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discountTotal"`
	TaxableAmount decimal.Decimal `json:"taxableAmount"`
	CGSTAmount    decimal.Decimal `json:"cgstAmount"`
	SGSTAmount    decimal.Decimal `json:"sgstAmount"`
	IGSTAmount    decimal.Decimal `json:"igstAmount"`
	TaxTotal      decimal.Decimal `json:"taxTotal"`
	TipAmount     decimal.Decimal `json:"tipAmount"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
	AmountDue     decimal.Decimal `json:"amountDue"`
}
