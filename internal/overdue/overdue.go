// Package overdue answers "how far behind is this loan" as pure queries over
// the loan's terms and ledger position. Nothing here is cached; every figure
// is derived from the date passed in.
package overdue

import (
	"sort"
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/pkg/money"
	"github.com/segyhp/loan-ledger/pkg/utils"

	"github.com/shopspring/decimal"
)

// LatePolicy prices late installments linearly: MonthlyRate of the
// installment per DaysPerMonth days late.
type LatePolicy struct {
	MonthlyRate  decimal.Decimal
	DaysPerMonth int
}

func DefaultLatePolicy() LatePolicy {
	return LatePolicy{
		MonthlyRate:  decimal.RequireFromString("0.02"),
		DaysPerMonth: 30,
	}
}

func (p LatePolicy) daysPerMonth() int64 {
	if p.DaysPerMonth <= 0 {
		return 30
	}
	return int64(p.DaysPerMonth)
}

// CurrentInstallmentNumber is the installment that is due in the period
// containing today: 0 before the first due date, then one more for every
// complete month elapsed, capped at the loan's total installments.
func CurrentInstallmentNumber(loan *domain.Loan, today time.Time) int {
	if loan.FirstDueDate == nil {
		return 0
	}

	months := utils.FullMonthsBetween(*loan.FirstDueDate, today)
	if months < 0 {
		return 0
	}

	current := months + 1
	if current > loan.TotalInstallments {
		current = loan.TotalInstallments
	}
	return current
}

func overdueCount(current, paid int) int {
	expected := current - 1
	if expected < 0 {
		expected = 0
	}
	if expected <= paid {
		return 0
	}
	return expected - paid
}

// accrues reports whether the loan can fall behind at all. Closed loans may
// have fewer paid installments than elapsed months after a prepayment.
func accrues(loan *domain.Loan) bool {
	return loan.Status == domain.LoanStatusActive || loan.Status == domain.LoanStatusDefaulted
}

// OverdueInstallments counts installments whose period has fully elapsed
// without being paid.
func OverdueInstallments(loan *domain.Loan, today time.Time) int {
	if !accrues(loan) {
		return 0
	}
	return overdueCount(CurrentInstallmentNumber(loan, today), loan.PaidInstallments)
}

func OverdueAmount(loan *domain.Loan, today time.Time) decimal.Decimal {
	n := OverdueInstallments(loan, today)
	return loan.InstallmentAmount.Mul(decimal.NewFromInt(int64(n)))
}

// DaysPastDue is the age in days of the oldest overdue installment, or 0
// when nothing is overdue.
func DaysPastDue(loan *domain.Loan, today time.Time) int {
	if OverdueInstallments(loan, today) == 0 {
		return 0
	}
	due := utils.CalculateDueDate(*loan.FirstDueDate, loan.PaidInstallments+1)
	return utils.DaysBetween(due, today)
}

// IsDelinquent reports whether at least threshold installments are overdue.
func IsDelinquent(loan *domain.Loan, today time.Time, threshold int) bool {
	if threshold <= 0 {
		threshold = 1
	}
	return OverdueInstallments(loan, today) >= threshold
}

// LateFee is installment * rate * daysLate / daysPerMonth, rounded to cents.
// Non-positive daysLate costs nothing.
func LateFee(installment decimal.Decimal, daysLate int, policy LatePolicy) decimal.Decimal {
	if daysLate <= 0 || !installment.IsPositive() {
		return decimal.Zero
	}

	fee := installment.
		Mul(policy.MonthlyRate).
		Mul(decimal.NewFromInt(int64(daysLate))).
		DivRound(decimal.NewFromInt(policy.daysPerMonth()), 28)

	return money.Round(fee)
}

// AccruedLateFee sums the late fee of every overdue installment up to today.
func AccruedLateFee(loan *domain.Loan, today time.Time, policy LatePolicy) decimal.Decimal {
	n := OverdueInstallments(loan, today)
	total := decimal.Zero
	for i := 1; i <= n; i++ {
		due := utils.CalculateDueDate(*loan.FirstDueDate, loan.PaidInstallments+i)
		total = total.Add(LateFee(loan.InstallmentAmount, utils.DaysBetween(due, today), policy))
	}
	return total
}

// Assess bundles every overdue figure for one loan.
func Assess(loan *domain.Loan, today time.Time, policy LatePolicy, threshold int) *domain.OverdueResponse {
	return &domain.OverdueResponse{
		LoanID:              loan.ID,
		AsOf:                utils.DateOnly(today),
		CurrentInstallment:  CurrentInstallmentNumber(loan, today),
		PaidInstallments:    loan.PaidInstallments,
		OverdueInstallments: OverdueInstallments(loan, today),
		OverdueAmount:       OverdueAmount(loan, today),
		DaysPastDue:         DaysPastDue(loan, today),
		AccruedLateFee:      AccruedLateFee(loan, today, policy),
		IsDelinquent:        IsDelinquent(loan, today, threshold),
	}
}

type position struct {
	paid   int
	closed bool
}

// replay rebuilds the installment counter and closure flag from the ledger
// entries dated on or before asOf. Reversals undo the effects recorded on
// the entry they offset.
func replay(payments []*domain.Payment, asOf time.Time) position {
	entries := make([]*domain.Payment, 0, len(payments))
	for _, p := range payments {
		if p.Status != domain.PaymentStatusCompleted && p.Status != domain.PaymentStatusReversed {
			continue
		}
		if p.PaymentDate.After(asOf) {
			continue
		}
		entries = append(entries, p)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PaymentDate.Equal(entries[j].PaymentDate) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].PaymentDate.Before(entries[j].PaymentDate)
	})

	var pos position
	for _, p := range entries {
		if p.IsReversal() {
			if p.InstallmentAdvanced && pos.paid > 0 {
				pos.paid--
			}
			if p.ClosedLoan {
				pos.closed = false
			}
			continue
		}
		if p.InstallmentAdvanced {
			pos.paid++
		}
		if p.ClosedLoan {
			pos.closed = true
		}
	}
	return pos
}

// PaidInstallmentsAsOf is the installment counter the loan had at asOf.
func PaidInstallmentsAsOf(payments []*domain.Payment, asOf time.Time) int {
	return replay(payments, asOf).paid
}

// OverdueAmountAsOf is OverdueAmount evaluated at a past date, using the
// payment history instead of the loan's current counters. Nothing is overdue
// on or after an administrative closure.
func OverdueAmountAsOf(loan *domain.Loan, payments []*domain.Payment, asOf time.Time) decimal.Decimal {
	if loan.DisbursementDate == nil || loan.DisbursementDate.After(asOf) {
		return decimal.Zero
	}
	if loan.ClosedAt != nil && !asOf.Before(*loan.ClosedAt) {
		return decimal.Zero
	}

	pos := replay(payments, asOf)
	if pos.closed {
		return decimal.Zero
	}

	n := overdueCount(CurrentInstallmentNumber(loan, asOf), pos.paid)
	return loan.InstallmentAmount.Mul(decimal.NewFromInt(int64(n)))
}
