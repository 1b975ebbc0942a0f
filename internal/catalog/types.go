// Package catalog exposes read-only price, tax, commission and customer
// facts to the checkout engine. The engine never owns catalog data; it
// consumes snapshots through the Lookup contract and decides how to combine
// them.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// ItemType enumerates the sellable catalog entity kinds.
type ItemType string

const (
	ItemService ItemType = "service"
	ItemProduct ItemType = "product"
	ItemCombo   ItemType = "combo"
	ItemPackage ItemType = "package"
)

// Valid reports whether the item type is one the engine can price.
func (t ItemType) Valid() bool {
	switch t {
	case ItemService, ItemProduct, ItemCombo, ItemPackage:
		return true
	}
	return false
}

// CommissionPercentage and CommissionFlat select how staff commission is
// derived from a line item.
const (
	CommissionPercentage = "percentage"
	CommissionFlat       = "flat"
)

// ItemSnapshot is a point-in-time view of one sellable item. BranchPrice and
// BranchTaxRate are set only when the branch carries an override.
type ItemSnapshot struct {
	Type           ItemType         `json:"type"`
	ReferenceID    string           `json:"referenceId"`
	Name           string           `json:"name"`
	SKU            string           `json:"sku"`
	HSNCode        string           `json:"hsnCode"`
	Price          decimal.Decimal  `json:"price"`
	BranchPrice    *decimal.Decimal `json:"branchPrice,omitempty"`
	TaxRate        decimal.Decimal  `json:"taxRate"`
	BranchTaxRate  *decimal.Decimal `json:"branchTaxRate,omitempty"`
	CommissionType string           `json:"commissionType,omitempty"`
	CommissionRate decimal.Decimal  `json:"commissionRate"`
}

// Membership is an active customer membership with a percentage benefit.
type Membership struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

// PackageCredit is the remaining redeemable value on a prepaid package.
type PackageCredit struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	RemainingValue decimal.Decimal `json:"remainingValue"`
}

// CustomerProfile aggregates the customer facts checkout needs at session
// start: identity plus everything that can turn into a discount offer.
type CustomerProfile struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	Memberships   []Membership    `json:"memberships"`
	Packages      []PackageCredit `json:"packages"`
	LoyaltyPoints int64           `json:"loyaltyPoints"`
	LoyaltyValue  decimal.Decimal `json:"loyaltyValue"`
}

// AppointmentService is one booked service on an appointment.
type AppointmentService struct {
	ServiceID   string  `json:"serviceId"`
	StylistID   *string `json:"stylistId,omitempty"`
	AssistantID *string `json:"assistantId,omitempty"`
}

// Appointment is the subset of a booking the checkout engine needs to
// pre-populate a session.
type Appointment struct {
	ID         string               `json:"id"`
	BranchID   string               `json:"branchId"`
	CustomerID string               `json:"customerId"`
	Services   []AppointmentService `json:"services"`
}

// Lookup is the narrow read contract the checkout engine consumes.
type Lookup interface {
	Item(ctx context.Context, tenantID, branchID string, itemType ItemType, referenceID string) (ItemSnapshot, error)
	Customer(ctx context.Context, tenantID, customerID string) (CustomerProfile, error)
	Appointment(ctx context.Context, tenantID, appointmentID string) (Appointment, error)
}
