// Package calculator computes equated monthly installments and amortization
// schedules. Everything here is a pure function of its inputs.
package calculator

import (
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/money"
	"github.com/segyhp/loan-ledger/pkg/utils"

	"github.com/shopspring/decimal"
)

// Totals are the figures derived from the installment amount.
type Totals struct {
	Installment   decimal.Decimal `json:"installment"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalInterest decimal.Decimal `json:"total_interest"`
}

// ValidateTerms rejects non-positive principal or term and negative rates.
func ValidateTerms(principal, annualRatePct decimal.Decimal, termMonths int) error {
	if !principal.IsPositive() {
		return customError.WrapInvalidLoanTerms("principal must be greater than zero")
	}
	if annualRatePct.IsNegative() {
		return customError.WrapInvalidLoanTerms("annual rate must not be negative")
	}
	if termMonths <= 0 {
		return customError.WrapInvalidLoanTerms("term must be at least one month")
	}
	return nil
}

// ComputeEMI returns the fixed monthly installment, rounded half-up to cents.
//
//	r   = annualRatePct / 100 / 12
//	EMI = P * r * (1+r)^n / ((1+r)^n - 1), or P / n when r == 0
func ComputeEMI(principal, annualRatePct decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if err := ValidateTerms(principal, annualRatePct, termMonths); err != nil {
		return decimal.Zero, err
	}
	return emi(principal, money.MonthlyRate(annualRatePct), termMonths), nil
}

func emi(principal, r decimal.Decimal, n int) decimal.Decimal {
	if r.IsZero() {
		return money.Round(principal.Div(decimal.NewFromInt(int64(n))))
	}
	factor := money.Compound(r, n)
	numerator := principal.Mul(r).Mul(factor)
	denominator := factor.Sub(decimal.NewFromInt(1))
	return money.Round(numerator.DivRound(denominator, 16))
}

// ComputeTotals derives the installment, total repayable and total interest.
func ComputeTotals(principal, annualRatePct decimal.Decimal, termMonths int) (Totals, error) {
	installment, err := ComputeEMI(principal, annualRatePct, termMonths)
	if err != nil {
		return Totals{}, err
	}
	total := installment.Mul(decimal.NewFromInt(int64(termMonths)))
	return Totals{
		Installment:   installment,
		TotalAmount:   total,
		TotalInterest: total.Sub(principal),
	}, nil
}

// GenerateSchedule materializes the full amortization table. Period k is due
// on startDate + (k-1) months. Interest is charged on the running balance and
// rounded to cents; the final period takes whatever principal remains so the
// closing balance is exactly zero.
func GenerateSchedule(principal, annualRatePct decimal.Decimal, termMonths int, startDate time.Time) ([]domain.ScheduleEntry, error) {
	installment, err := ComputeEMI(principal, annualRatePct, termMonths)
	if err != nil {
		return nil, err
	}
	r := money.MonthlyRate(annualRatePct)
	return amortize(principal, r, installment, termMonths, startDate, false), nil
}

// amortize runs the period loop shared by the full schedule and the
// shortened-tenure prepayment schedule. With stopWhenPaid the loop ends as
// soon as the balance reaches zero; otherwise the last of maxPeriods periods
// absorbs the residue.
func amortize(balance, r, installment decimal.Decimal, maxPeriods int, startDate time.Time, stopWhenPaid bool) []domain.ScheduleEntry {
	entries := make([]domain.ScheduleEntry, 0, maxPeriods)

	for period := 1; period <= maxPeriods; period++ {
		interest := money.Round(balance.Mul(r))
		principalDue := installment.Sub(interest)
		due := installment

		if period == maxPeriods || principalDue.GreaterThanOrEqual(balance) {
			principalDue = balance
			due = principalDue.Add(interest)
		}

		balance = balance.Sub(principalDue)

		entries = append(entries, domain.ScheduleEntry{
			Period:       period,
			DueDate:      utils.CalculateDueDate(startDate, period),
			Installment:  due,
			InterestDue:  interest,
			PrincipalDue: principalDue,
			BalanceAfter: balance,
		})

		if stopWhenPaid && balance.IsZero() {
			break
		}
	}

	return entries
}

// TotalInterest sums the interest column of a schedule.
func TotalInterest(entries []domain.ScheduleEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.InterestDue)
	}
	return total
}
