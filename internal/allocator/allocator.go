// Package allocator splits incoming payments between interest and principal
// under an interest-first policy.
package allocator

import (
	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/money"

	"github.com/shopspring/decimal"
)

// Allocator applies the overpayment policy on top of Split: a payment whose
// principal part would exceed the outstanding balance by more than the fold
// tolerance is rejected. Smaller overflows are left for the ledger to fold.
type Allocator struct {
	epsilon decimal.Decimal
}

func New(epsilon decimal.Decimal) *Allocator {
	if epsilon.IsNegative() {
		epsilon = decimal.Zero
	}
	return &Allocator{epsilon: epsilon}
}

// InterestDue is one period of interest on the outstanding balance, rounded
// to cents.
func InterestDue(outstanding, annualRatePct decimal.Decimal) decimal.Decimal {
	return money.Round(outstanding.Mul(money.MonthlyRate(annualRatePct)))
}

// PayoffAmount is the amount that settles the loan right now: the
// outstanding principal plus the current period's interest.
func PayoffAmount(loan *domain.Loan) decimal.Decimal {
	return loan.OutstandingBalance.Add(InterestDue(loan.OutstandingBalance, loan.AnnualRate))
}

// FoldTolerance is how far a payment's principal may exceed the outstanding
// balance and still be folded into a payoff. On the final installment it
// widens to the schedule's rounding residue, the gap between the flat
// installment and the payoff, which is at most a cent per period.
func FoldTolerance(loan *domain.Loan, epsilon decimal.Decimal) decimal.Decimal {
	if loan.TotalInstallments == 0 || loan.PaidInstallments != loan.TotalInstallments-1 {
		return epsilon
	}
	residue := loan.InstallmentAmount.Sub(PayoffAmount(loan))
	residue = money.Min(residue, money.Cent.Mul(decimal.NewFromInt(int64(loan.TotalInstallments))))
	if residue.GreaterThan(epsilon) {
		return residue
	}
	return epsilon
}

// Split divides amount interest-first. It performs no validation and never
// mutates anything; interest + principal == amount always holds.
func Split(outstanding, annualRatePct, amount decimal.Decimal) domain.Allocation {
	interestDue := InterestDue(outstanding, annualRatePct)
	interest := money.Min(amount, interestDue)
	principal := money.ClampZero(amount.Sub(interest))

	return domain.Allocation{
		Amount:             amount,
		InterestDue:        interestDue,
		InterestComponent:  interest,
		PrincipalComponent: principal,
		RemainingBalance:   money.ClampZero(outstanding.Sub(principal)),
	}
}

// Allocate computes the breakdown of amount against the loan's current
// state. Calling it repeatedly on the same state yields the same split.
func (a *Allocator) Allocate(loan *domain.Loan, amount decimal.Decimal) (domain.Allocation, error) {
	if !amount.IsPositive() || !amount.Equal(money.Round(amount)) {
		return domain.Allocation{}, customError.WrapInvalidPaymentAmount(amount.String())
	}

	alloc := Split(loan.OutstandingBalance, loan.AnnualRate, amount)

	overflow := alloc.PrincipalComponent.Sub(loan.OutstandingBalance)
	if overflow.GreaterThan(FoldTolerance(loan, a.epsilon)) {
		return domain.Allocation{}, customError.WrapPaymentExceedsOutstanding(
			money.Format(amount), money.Format(PayoffAmount(loan)))
	}

	return alloc, nil
}
