// Package money centralises the rounding rules applied to monetary values.
// Amounts are carried as decimals at full precision through intermediate
// arithmetic and rounded only when they are finalised into a line item or a
// totals snapshot.
package money

import "github.com/shopspring/decimal"

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// Round2 rounds an amount to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundUnit rounds an amount to the nearest whole currency unit. Used only
// for the grand total, which is the figure actually collected at settlement.
func RoundUnit(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// Max returns the larger of two amounts.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of two amounts.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Clamp floors an amount at zero. Discounts and dues are never negative.
func Clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
