// Package money holds the fixed-point rules every ledger figure goes through.
// Amounts are decimal.Decimal values carried at two fractional digits and
// rounded half-up (half away from zero for negative reversal amounts).
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept for currency.
const Places = 2

// ratePrecision is the number of fractional digits kept for periodic rates
// and compounding factors before the final round to cents.
const ratePrecision = 28

var (
	// Cent is the smallest representable amount.
	Cent = decimal.New(1, -Places)

	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// Round rounds an amount half-up to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// IsPositive reports whether d is strictly greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(decimal.Zero)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ClampZero floors d at zero.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	return Max(d, decimal.Zero)
}

// WithinEpsilon reports whether |d| <= epsilon.
func WithinEpsilon(d, epsilon decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(epsilon)
}

// MonthlyRate converts an annual nominal percentage into the monthly
// fraction r = pct / 100 / 12.
func MonthlyRate(annualPct decimal.Decimal) decimal.Decimal {
	return annualPct.DivRound(hundred.Mul(twelve), ratePrecision)
}

// Compound returns (1+r)^n. Each step is rounded to ratePrecision so long
// terms stay bounded in size while remaining deterministic.
func Compound(r decimal.Decimal, n int) decimal.Decimal {
	base := decimal.NewFromInt(1).Add(r)
	factor := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		factor = factor.Mul(base).Round(ratePrecision)
	}
	return factor
}

// Parse reads a decimal string and rounds it to cents.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Round(d), nil
}

// Format renders an amount with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Sum adds up amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
