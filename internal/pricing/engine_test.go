package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/glowdesk/backend-salon/internal/catalog"
)

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func serviceSnapshot(price, taxRate string) catalog.ItemSnapshot {
	return catalog.ItemSnapshot{
		Type:        catalog.ItemService,
		ReferenceID: "svc-1",
		Name:        "Haircut",
		Price:       dec(price),
		TaxRate:     dec(taxRate),
	}
}

func TestPriceItemIntraStateSplit(t *testing.T) {
	item := PriceItem(serviceSnapshot("1000", "18"), 1, false)
	if !item.CGSTAmount.Equal(dec("90")) || !item.SGSTAmount.Equal(dec("90")) {
		t.Fatalf("expected 90/90 split, got %s/%s", item.CGSTAmount, item.SGSTAmount)
	}
	if !item.IGSTAmount.IsZero() {
		t.Fatalf("expected zero IGST, got %s", item.IGSTAmount)
	}
	if !item.TotalTax.Equal(dec("180")) {
		t.Fatalf("expected total tax 180, got %s", item.TotalTax)
	}
	if !item.NetAmount.Equal(dec("1180")) {
		t.Fatalf("expected net 1180, got %s", item.NetAmount)
	}
	if !item.NetAmount.Equal(item.TaxableAmount.Add(item.TotalTax)) {
		t.Fatalf("net amount invariant broken")
	}
}

func TestPriceItemInterStateRoutesToIGST(t *testing.T) {
	item := PriceItem(serviceSnapshot("1000", "18"), 2, true)
	if !item.IGSTAmount.Equal(dec("360")) {
		t.Fatalf("expected IGST 360, got %s", item.IGSTAmount)
	}
	if !item.CGSTAmount.IsZero() || !item.SGSTAmount.IsZero() {
		t.Fatalf("expected zero CGST/SGST, got %s/%s", item.CGSTAmount, item.SGSTAmount)
	}
	if !item.TotalTax.Equal(item.CGSTAmount.Add(item.SGSTAmount).Add(item.IGSTAmount)) {
		t.Fatalf("tax component invariant broken")
	}
}

func TestPriceItemBranchOverrideWins(t *testing.T) {
	snap := serviceSnapshot("1000", "18")
	branchPrice := dec("850")
	branchRate := dec("5")
	snap.BranchPrice = &branchPrice
	snap.BranchTaxRate = &branchRate
	item := PriceItem(snap, 1, false)
	if !item.UnitPrice.Equal(dec("850")) {
		t.Fatalf("expected branch price 850, got %s", item.UnitPrice)
	}
	if !item.TotalTax.Equal(dec("42.5")) {
		t.Fatalf("expected tax 42.5 at 5%%, got %s", item.TotalTax)
	}
}

func TestPriceItemOddTaxRoundsPerComponent(t *testing.T) {
	// 333 * 18% = 59.94, halves are 29.97 each; components round independently.
	item := PriceItem(serviceSnapshot("333", "18"), 1, false)
	if !item.CGSTAmount.Equal(dec("29.97")) {
		t.Fatalf("expected CGST 29.97, got %s", item.CGSTAmount)
	}
	if !item.TotalTax.Equal(dec("59.94")) {
		t.Fatalf("expected total tax 59.94, got %s", item.TotalTax)
	}
}

func TestPriceItemCommission(t *testing.T) {
	snap := serviceSnapshot("1000", "18")
	snap.CommissionType = catalog.CommissionPercentage
	snap.CommissionRate = dec("10")
	item := PriceItem(snap, 2, false)
	if !item.CommissionAmount.Equal(dec("200")) {
		t.Fatalf("expected percentage commission 200, got %s", item.CommissionAmount)
	}

	snap.CommissionType = catalog.CommissionFlat
	snap.CommissionRate = dec("50")
	item = PriceItem(snap, 3, false)
	if !item.CommissionAmount.Equal(dec("150")) {
		t.Fatalf("expected flat commission 150, got %s", item.CommissionAmount)
	}

	snap.CommissionType = ""
	item = PriceItem(snap, 3, false)
	if !item.CommissionAmount.IsZero() {
		t.Fatalf("expected zero commission, got %s", item.CommissionAmount)
	}
}

func pricedItems() []LineItem {
	a := PriceItem(serviceSnapshot("1000", "18"), 1, false)
	a.ID = "item-a"
	b := PriceItem(serviceSnapshot("400", "18"), 1, false)
	b.ID = "item-b"
	return []LineItem{a, b}
}

func TestDiscountAmountSubtotalPercentage(t *testing.T) {
	amount, ok := DiscountAmount(pricedItems(), ScopeSubtotal, CalcPercentage, dec("10"), "")
	if !ok {
		t.Fatal("expected subtotal discount to resolve")
	}
	if !amount.Equal(dec("140")) {
		t.Fatalf("expected 10%% of 1400 = 140, got %s", amount)
	}
}

func TestDiscountAmountItemFlatCappedAtGross(t *testing.T) {
	items := pricedItems()
	for _, value := range []string{"100", "400", "9000"} {
		amount, ok := DiscountAmount(items, ScopeItem, CalcFlat, dec(value), "item-b")
		if !ok {
			t.Fatalf("expected item discount to resolve for value %s", value)
		}
		want := dec(value)
		if want.GreaterThan(dec("400")) {
			want = dec("400")
		}
		if !amount.Equal(want) {
			t.Fatalf("value %s: expected %s, got %s", value, want, amount)
		}
	}
}

func TestDiscountAmountItemPercentage(t *testing.T) {
	amount, ok := DiscountAmount(pricedItems(), ScopeItem, CalcPercentage, dec("25"), "item-a")
	if !ok {
		t.Fatal("expected item discount to resolve")
	}
	if !amount.Equal(dec("250")) {
		t.Fatalf("expected 25%% of 1000 = 250, got %s", amount)
	}
}

func TestDiscountAmountUnknownItem(t *testing.T) {
	if _, ok := DiscountAmount(pricedItems(), ScopeItem, CalcFlat, dec("10"), "missing"); ok {
		t.Fatal("expected unresolved item scope")
	}
}

func TestDiscountAmountNeverNegative(t *testing.T) {
	amount, ok := DiscountAmount(pricedItems(), ScopeSubtotal, CalcFlat, dec("-50"), "")
	if !ok || !amount.IsZero() {
		t.Fatalf("expected negative flat value clamped to zero, got %s", amount)
	}
}

func TestAggregateEmptySession(t *testing.T) {
	totals := Aggregate(nil, nil, nil, decimal.Zero)
	if !totals.GrandTotal.IsZero() || !totals.AmountDue.IsZero() {
		t.Fatalf("expected zero totals, got grand=%s due=%s", totals.GrandTotal, totals.AmountDue)
	}
}

func TestAggregateDiscountedSession(t *testing.T) {
	item := PriceItem(serviceSnapshot("1000", "18"), 1, false)
	item.ID = "item-a"
	discounts := []AppliedDiscount{{
		ID: "d1", Type: DiscountManual, Calculation: CalcPercentage,
		Value: dec("10"), Amount: dec("100"), AppliedTo: ScopeSubtotal,
	}}
	totals := Aggregate([]LineItem{item}, discounts, nil, decimal.Zero)
	if !totals.Subtotal.Equal(dec("1000")) {
		t.Fatalf("expected subtotal 1000, got %s", totals.Subtotal)
	}
	if !totals.DiscountTotal.Equal(dec("100")) {
		t.Fatalf("expected discount total 100, got %s", totals.DiscountTotal)
	}
	if !totals.TaxableAmount.Equal(dec("900")) {
		t.Fatalf("expected taxable 900, got %s", totals.TaxableAmount)
	}
	if !totals.GrandTotal.Equal(dec("1080")) {
		t.Fatalf("expected grand total 1080, got %s", totals.GrandTotal)
	}
}

func TestAggregatePaymentsAndDue(t *testing.T) {
	item := PriceItem(serviceSnapshot("1000", "18"), 1, false)
	item.ID = "item-a"
	payments := []PaymentEntry{{ID: "p1", Method: PayCash, Amount: dec("500")}}
	totals := Aggregate([]LineItem{item}, nil, payments, decimal.Zero)
	if !totals.AmountDue.Equal(dec("680")) {
		t.Fatalf("expected due 680, got %s", totals.AmountDue)
	}

	payments = append(payments, PaymentEntry{ID: "p2", Method: PayCard, Amount: dec("2000")})
	totals = Aggregate([]LineItem{item}, nil, payments, decimal.Zero)
	if !totals.AmountDue.IsZero() {
		t.Fatalf("overpayment must clamp due to zero, got %s", totals.AmountDue)
	}
}

func TestAggregateTipFeedsGrandTotal(t *testing.T) {
	item := PriceItem(serviceSnapshot("1000", "18"), 1, false)
	totals := Aggregate([]LineItem{item}, nil, nil, dec("99.6"))
	// 1000 + 180 + 99.6 rounds to the nearest whole unit.
	if !totals.GrandTotal.Equal(dec("1280")) {
		t.Fatalf("expected grand total 1280, got %s", totals.GrandTotal)
	}
}

func TestAggregateIdempotentAndOrderIndependent(t *testing.T) {
	items := pricedItems()
	discounts := []AppliedDiscount{
		{ID: "d1", Amount: dec("50"), AppliedTo: ScopeSubtotal},
		{ID: "d2", Amount: dec("30"), AppliedTo: ScopeItem, AppliedItemID: "item-b"},
	}
	payments := []PaymentEntry{
		{ID: "p1", Method: PayCash, Amount: dec("700")},
		{ID: "p2", Method: PayUPI, Amount: dec("300")},
	}
	first := Aggregate(items, discounts, payments, dec("20"))
	second := Aggregate(items, discounts, payments, dec("20"))
	if !totalsEqual(first, second) {
		t.Fatalf("aggregation not idempotent: %+v vs %+v", first, second)
	}

	reversedItems := []LineItem{items[1], items[0]}
	reversedDiscounts := []AppliedDiscount{discounts[1], discounts[0]}
	reversedPayments := []PaymentEntry{payments[1], payments[0]}
	third := Aggregate(reversedItems, reversedDiscounts, reversedPayments, dec("20"))
	if !first.GrandTotal.Equal(third.GrandTotal) || !first.AmountDue.Equal(third.AmountDue) {
		t.Fatalf("aggregation order dependent: %+v vs %+v", first, third)
	}
}

func totalsEqual(a, b Totals) bool {
	return a.Subtotal.Equal(b.Subtotal) &&
		a.DiscountTotal.Equal(b.DiscountTotal) &&
		a.TaxableAmount.Equal(b.TaxableAmount) &&
		a.CGSTAmount.Equal(b.CGSTAmount) &&
		a.SGSTAmount.Equal(b.SGSTAmount) &&
		a.IGSTAmount.Equal(b.IGSTAmount) &&
		a.TaxTotal.Equal(b.TaxTotal) &&
		a.TipAmount.Equal(b.TipAmount) &&
		a.GrandTotal.Equal(b.GrandTotal) &&
		a.AmountPaid.Equal(b.AmountPaid) &&
		a.AmountDue.Equal(b.AmountDue)
}

func TestAggregateTaxComponentInvariant(t *testing.T) {
	items := []LineItem{
		PriceItem(serviceSnapshot("333", "18"), 1, false),
		PriceItem(serviceSnapshot("250", "12"), 2, true),
	}
	totals := Aggregate(items, nil, nil, decimal.Zero)
	sum := totals.CGSTAmount.Add(totals.SGSTAmount).Add(totals.IGSTAmount)
	if !totals.TaxTotal.Equal(sum) {
		t.Fatalf("tax total %s != component sum %s", totals.TaxTotal, sum)
	}
}
