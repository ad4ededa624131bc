// Package money holds the cent arithmetic shared by checkout, receipts and
// exports. Amounts are int64 cents; rates are decimals.
package money

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ToCents rounds half away from zero to the nearest cent.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// Format renders cents with exactly two decimals, e.g. 35000 -> "350.00".
func Format(cents int64) string {
	return FromCents(cents).StringFixed(2)
}

func FormatPtr(cents *int64) string {
	if cents == nil {
		return ""
	}
	return Format(*cents)
}

// Tax returns the tax owed on subtotal at ratePercent (16 means 16%).
func Tax(subtotalCents int64, ratePercent decimal.Decimal) int64 {
	return decimal.NewFromInt(subtotalCents).Mul(ratePercent).Div(hundred).Round(0).IntPart()
}

// ToDomestic converts a foreign-currency amount using rate (domestic per foreign unit).
func ToDomestic(foreignCents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(foreignCents).Mul(rate).Round(0).IntPart()
}

// ToForeign converts a domestic amount to foreign cents, rounding up so the
// quoted foreign total always covers the domestic total.
func ToForeign(domesticCents int64, rate decimal.Decimal) int64 {
	if rate.Sign() <= 0 {
		return 0
	}
	return decimal.NewFromInt(domesticCents).Div(rate).Ceil().IntPart()
}

// Change reports the change due and whether the tender covers the total.
func Change(receivedCents int64, totalCents int64) (int64, bool) {
	if receivedCents < totalCents {
		return 0, false
	}
	return receivedCents - totalCents, true
}

func Ptr(cents int64) *int64 {
	return &cents
}
