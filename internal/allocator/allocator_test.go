package allocator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/money"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func loanWithBalance(outstanding, rate string) *domain.Loan {
	return &domain.Loan{
		LoanTerms: domain.LoanTerms{Principal: d("100000"), AnnualRate: d(rate), TermMonths: 24},
		LoanState: domain.LoanState{OutstandingBalance: d(outstanding), Status: domain.LoanStatusActive},
	}
}

func TestAllocate_InterestFirst(t *testing.T) {
	allocator := New(money.Cent)
	loan := loanWithBalance("50000", "12") // monthly rate 0.01

	alloc, err := allocator.Allocate(loan, d("2000"))
	require.NoError(t, err)

	assert.True(t, alloc.InterestDue.Equal(d("500.00")))
	assert.True(t, alloc.InterestComponent.Equal(d("500.00")))
	assert.True(t, alloc.PrincipalComponent.Equal(d("1500.00")))
	assert.True(t, alloc.RemainingBalance.Equal(d("48500.00")))
}

func TestAllocate_PaymentBelowInterest(t *testing.T) {
	allocator := New(money.Cent)
	loan := loanWithBalance("50000", "12")

	alloc, err := allocator.Allocate(loan, d("300"))
	require.NoError(t, err)

	assert.True(t, alloc.InterestComponent.Equal(d("300")))
	assert.True(t, alloc.PrincipalComponent.IsZero())
}

func TestAllocate_IsPure(t *testing.T) {
	allocator := New(money.Cent)
	loan := loanWithBalance("50000", "12")
	before := loan.State()

	first, err := allocator.Allocate(loan, d("2000"))
	require.NoError(t, err)
	second, err := allocator.Allocate(loan, d("2000"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, before.Equal(loan.State()))
}

func TestAllocate_InvalidAmount(t *testing.T) {
	allocator := New(money.Cent)
	loan := loanWithBalance("50000", "12")

	for _, amount := range []string{"0", "-10", "10.005"} {
		t.Run(amount, func(t *testing.T) {
			_, err := allocator.Allocate(loan, d(amount))
			assert.True(t, errors.Is(err, customError.ErrInvalidPaymentAmount))
		})
	}
}

func TestAllocate_Overpayment(t *testing.T) {
	allocator := New(money.Cent)
	loan := loanWithBalance("1000", "12")

	payoff := PayoffAmount(loan)
	assert.True(t, payoff.Equal(d("1010.00")))

	_, err := allocator.Allocate(loan, payoff)
	assert.NoError(t, err)

	// a one-cent overflow is tolerated and folded by the ledger
	_, err = allocator.Allocate(loan, payoff.Add(money.Cent))
	assert.NoError(t, err)

	_, err = allocator.Allocate(loan, payoff.Add(d("0.02")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrPaymentExceedsOutstanding))
	assert.Contains(t, err.Error(), "1010.00")
}

func finalInstallmentLoan(outstanding string, paid int) *domain.Loan {
	loan := loanWithBalance(outstanding, "12")
	loan.InstallmentAmount = d("8884.88")
	loan.TotalInstallments = 12
	loan.PaidInstallments = paid
	return loan
}

func TestAllocate_FinalInstallmentResidue(t *testing.T) {
	allocator := New(money.Cent)

	tests := []struct {
		name        string
		outstanding string
		paid        int
		amount      string
		wantErr     bool
	}{
		{"flat installment settles the last period", "8796.88", 11, "8884.88", false},
		{"beyond the residue", "8796.88", 11, "8884.89", true},
		{"residue only applies to the last period", "8796.88", 10, "8884.88", true},
		{"residue capped at a cent per period", "5000", 11, "8884.88", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := finalInstallmentLoan(tt.outstanding, tt.paid)
			_, err := allocator.Allocate(loan, d(tt.amount))
			if tt.wantErr {
				assert.True(t, errors.Is(err, customError.ErrPaymentExceedsOutstanding), "got %v", err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFoldTolerance(t *testing.T) {
	assert.True(t, FoldTolerance(finalInstallmentLoan("8796.88", 11), money.Cent).Equal(d("0.03")))
	assert.True(t, FoldTolerance(finalInstallmentLoan("8796.88", 10), money.Cent).Equal(money.Cent))
	assert.True(t, FoldTolerance(finalInstallmentLoan("5000", 11), money.Cent).Equal(d("0.12")))
	assert.True(t, FoldTolerance(loanWithBalance("1000", "12"), money.Cent).Equal(money.Cent))
}

func TestSplit_Conservation(t *testing.T) {
	balances := []string{"0", "0.01", "999.99", "50000", "123456.78"}
	rates := []string{"0", "7.25", "12", "36"}

	for _, b := range balances {
		for _, r := range rates {
			for cents := int64(1); cents <= 500001; cents += 9973 {
				amount := decimal.New(cents, -2)
				alloc := Split(d(b), d(r), amount)

				assert.True(t, alloc.InterestComponent.Add(alloc.PrincipalComponent).Equal(amount),
					fmt.Sprintf("balance=%s rate=%s amount=%s", b, r, amount))
				assert.False(t, alloc.InterestComponent.IsNegative())
				assert.False(t, alloc.PrincipalComponent.IsNegative())
				assert.True(t, alloc.InterestComponent.LessThanOrEqual(alloc.InterestDue))
			}
		}
	}
}

func TestInterestDue(t *testing.T) {
	assert.True(t, InterestDue(d("50000"), d("12")).Equal(d("500")))
	assert.True(t, InterestDue(d("50000"), decimal.Zero).IsZero())
	assert.True(t, InterestDue(d("1234.56"), d("10")).Equal(d("10.29")))
}
