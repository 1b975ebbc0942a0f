package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/glowdesk/backend-salon/internal/catalog"
	"github.com/glowdesk/backend-salon/internal/money"
)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// PriceItem turns a catalog snapshot and quantity into a priced line item.
// The branch override price and tax rate win over the catalog defaults.
// Intermediate gross/tax math runs at full precision; each monetary output
// is rounded once, when it is finalised into the line item.
func PriceItem(snap catalog.ItemSnapshot, qty int, isIGST bool) LineItem {
	unit := snap.Price
	if snap.BranchPrice != nil {
		unit = *snap.BranchPrice
	}
	rate := snap.TaxRate
	if snap.BranchTaxRate != nil {
		rate = *snap.BranchTaxRate
	}

	quantity := decimal.NewFromInt(int64(qty))
	gross := unit.Mul(quantity)
	tax := gross.Mul(rate).Div(hundred)

	var cgst, sgst, igst decimal.Decimal
	if isIGST {
		igst = money.Round2(tax)
	} else {
		// Intra-state GST splits evenly between the central and state halves.
		cgst = money.Round2(tax.Div(two))
		sgst = cgst
	}
	totalTax := cgst.Add(sgst).Add(igst)
	grossRounded := money.Round2(gross)

	item := LineItem{
		Type:          snap.Type,
		ReferenceID:   snap.ReferenceID,
		Name:          snap.Name,
		SKU:           snap.SKU,
		HSNCode:       snap.HSNCode,
		UnitPrice:     money.Round2(unit),
		Quantity:      qty,
		GrossAmount:   grossRounded,
		TaxRate:       rate,
		CGSTAmount:    cgst,
		SGSTAmount:    sgst,
		IGSTAmount:    igst,
		TaxableAmount: grossRounded,
		TotalTax:      totalTax,
		NetAmount:     grossRounded.Add(totalTax),
	}

	switch snap.CommissionType {
	case catalog.CommissionPercentage:
		item.CommissionType = snap.CommissionType
		item.CommissionRate = snap.CommissionRate
		item.CommissionAmount = money.Round2(gross.Mul(snap.CommissionRate).Div(hundred))
	case catalog.CommissionFlat:
		item.CommissionType = snap.CommissionType
		item.CommissionRate = snap.CommissionRate
		item.CommissionAmount = money.Round2(snap.CommissionRate.Mul(quantity))
	}
	return item
}

// DiscountAmount computes the monetary magnitude of an already-authorised
// discount request. Subtotal-scoped discounts draw on the gross sum of all
// items; item-scoped percentage discounts draw on the target item's gross,
// and item-scoped flat discounts are capped at it. The second return value
// is false only when an item scope names an id that is not on the session.
func DiscountAmount(items []LineItem, scope DiscountScope, calc CalculationType, value decimal.Decimal, appliedItemID string) (decimal.Decimal, bool) {
	switch scope {
	case ScopeSubtotal:
		if calc == CalcPercentage {
			return money.Round2(money.Clamp(grossSum(items).Mul(value).Div(hundred))), true
		}
		return money.Round2(money.Clamp(value)), true
	case ScopeItem:
		for _, it := range items {
			if it.ID != appliedItemID {
				continue
			}
			if calc == CalcPercentage {
				return money.Round2(money.Clamp(it.GrossAmount.Mul(value).Div(hundred))), true
			}
			return money.Round2(money.Clamp(money.Min(value, it.GrossAmount))), true
		}
		return decimal.Zero, false
	}
	return decimal.Zero, false
}

// Aggregate folds line items, discounts and payments into a totals snapshot.
// It is a pure summation: idempotent and order-independent over its inputs.
// Every field is rounded to two decimals except the grand total, which is
// rounded to the nearest whole unit.
func Aggregate(items []LineItem, discounts []AppliedDiscount, payments []PaymentEntry, tip decimal.Decimal) Totals {
	var t Totals
	subtotal := decimal.Zero
	cgst := decimal.Zero
	sgst := decimal.Zero
	igst := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.GrossAmount)
		cgst = cgst.Add(it.CGSTAmount)
		sgst = sgst.Add(it.SGSTAmount)
		igst = igst.Add(it.IGSTAmount)
	}
	discountTotal := decimal.Zero
	for _, d := range discounts {
		discountTotal = discountTotal.Add(d.Amount)
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	t.Subtotal = money.Round2(subtotal)
	t.DiscountTotal = money.Round2(discountTotal)
	t.TaxableAmount = money.Round2(subtotal.Sub(discountTotal))
	t.CGSTAmount = money.Round2(cgst)
	t.SGSTAmount = money.Round2(sgst)
	t.IGSTAmount = money.Round2(igst)
	t.TaxTotal = t.CGSTAmount.Add(t.SGSTAmount).Add(t.IGSTAmount)
	t.TipAmount = money.Round2(tip)
	t.GrandTotal = money.RoundUnit(t.TaxableAmount.Add(t.TaxTotal).Add(t.TipAmount))
	t.AmountPaid = money.Round2(paid)
	t.AmountDue = money.Round2(money.Clamp(t.GrandTotal.Sub(t.AmountPaid)))
	return t
}

func grossSum(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.GrossAmount)
	}
	return sum
}
