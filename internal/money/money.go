package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// Hundred is decimal 100
var Hundred = decimal.NewFromInt(100)

// FromString parses a decimal from string, tolerating a comma decimal
// separator as found in some exchange payloads
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.Replace(strings.TrimSpace(s), ",", ".", 1))
}

// Round2 rounds to two decimal places (grosz precision)
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// ApplyPercent computes amount * (percent/100), rounded to 2 places
func ApplyPercent(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(Hundred).Round(2)
}

// ParsePercent parses and range-checks a percentage value. It is the single
// parse-and-validate path for booking and VAT-deduction percentages: every
// caller gets the same [0,100] check instead of ad-hoc coercion.
func ParsePercent(s string) (decimal.Decimal, error) {
	d, err := FromString(s)
	if err != nil {
		return Zero, fmt.Errorf("not a number: %q", s)
	}
	return d, CheckPercent(d)
}

// CheckPercent validates that a percentage lies in [0,100]
func CheckPercent(d decimal.Decimal) error {
	if d.LessThan(Zero) || d.GreaterThan(Hundred) {
		return fmt.Errorf("percentage out of range [0,100]: %s", d)
	}
	return nil
}

// FormatAmount renders a monetary value with exactly two decimal digits
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatQuantity renders a quantity with up to six decimal digits, trailing
// zeros trimmed
func FormatQuantity(d decimal.Decimal) string {
	return d.Round(6).String()
}
