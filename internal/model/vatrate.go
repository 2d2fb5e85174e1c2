package model

import "github.com/shopspring/decimal"

// VATRate is the canonical representation of a VAT rate: a whole-number
// percentage ("23", "8", "5", "0") or the exempt marker "zw".
type VATRate string

const (
	VATRateStandard    VATRate = "23"
	VATRateReducedHigh VATRate = "8"
	VATRateReducedLow  VATRate = "5"
	VATRateZero        VATRate = "0"
	VATRateExempt      VATRate = "zw"
)

// Exempt reports whether the rate is the symbolic exempt marker
func (r VATRate) Exempt() bool {
	return r == VATRateExempt
}

// Percent returns the numeric percentage; zero for exempt rates
func (r VATRate) Percent() decimal.Decimal {
	if r.Exempt() {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(string(r))
	if err != nil {
		return decimal.Zero
	}
	return d
}
