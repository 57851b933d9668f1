package domain

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits every stored amount carries.
const MoneyScale = 2

const (
	// MaxIntegerDigits is what NUMERIC(18,2) leaves left of the decimal point.
	MaxIntegerDigits = 16
	// MaxInputScale bounds the fractional digits accepted before rounding.
	MaxInputScale = 18
)

// InMoneyRange reports whether d fits a NUMERIC(18,2) column once rounded to
// MoneyScale, and is small enough in scale to be rounded at all. It looks at
// the digit count and exponent only, so oversized input is never rescaled.
func InMoneyRange(d decimal.Decimal) bool {
	if Scale(d) > MaxInputScale {
		return false
	}
	if !integerDigitsFit(d) {
		return false
	}
	// Rounding can carry into one more integer digit.
	return integerDigitsFit(d.Round(MoneyScale))
}

func integerDigitsFit(d decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}
	return d.NumDigits()+int(d.Exponent()) <= MaxIntegerDigits
}

// Scale reports how many fractional digits d was written with.
// "150.503" has scale 3, "150.50" scale 2 and "150" scale 0.
func Scale(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// ToMoney rescales d to MoneyScale, rounding half away from zero like a
// NUMERIC(18,2) column does.
func ToMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// FormatMoney renders d with exactly two fractional digits, e.g. "350.00".
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}

// ParseMoney parses a decimal string as stored by the database.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ToMoney(d), nil
}
