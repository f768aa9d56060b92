package service

import (
	"context"
	"sync"
	"testing"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func emiRequest(amount string) *domain.MakePaymentRequest {
	return &domain.MakePaymentRequest{Amount: d(amount), Method: "upi"}
}

func TestLoanService_MakePayment_EMI(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	loan := activeLoan(t, f, "borrower@example.com")

	f.at(day(2026, 1, 31))
	result, err := f.svc.MakePayment(ctx, loan.ID, emiRequest("8884.88"))
	require.NoError(t, err)

	payment := result.Payment
	assert.Equal(t, "PAY2026013100001", payment.PaymentNumber)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, domain.PaymentTypeEMI, payment.Type)
	assert.True(t, payment.InterestComponent.Equal(d("1000")))
	assert.True(t, payment.PrincipalComponent.Equal(d("7884.88")))
	assert.True(t, payment.PenaltyComponent.IsZero())
	require.NotNil(t, payment.InstallmentIndex)
	assert.Equal(t, 1, *payment.InstallmentIndex)
	assert.True(t, payment.InstallmentAdvanced)

	assert.True(t, result.Loan.OutstandingBalance.Equal(d("92115.12")))
	assert.Equal(t, 1, result.Loan.PaidInstallments)
	require.NotNil(t, result.Loan.NextDueDate)
	assert.Equal(t, "2026-02-28", result.Loan.NextDueDate.Format("2006-01-02"))

	stored, err := f.svc.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.State().Equal(result.Loan.State()))

	payments, err := f.svc.ListPayments(ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	// 8884.88 of 106618.56
	outstanding, err := f.svc.GetOutstanding(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, outstanding.CompletionPercentage.Equal(d("8.33")), outstanding.CompletionPercentage.String())

	f.notifier.AssertCalled(t, "PaymentReceipt", mock.Anything, mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.PaymentNumber == "PAY2026013100001"
	}))
}

func TestLoanService_MakePayment_Late(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	loan := activeLoan(t, f, "")

	f.at(day(2026, 2, 10))
	result, err := f.svc.MakePayment(ctx, loan.ID, emiRequest("8884.88"))
	require.NoError(t, err)

	// 8884.88 * 2% * 10 / 30
	assert.Equal(t, 10, result.Payment.DaysLate)
	assert.True(t, result.Payment.PenaltyComponent.Equal(d("59.23")), result.Payment.PenaltyComponent.String())
	assert.True(t, result.Loan.PenaltyPaid.Equal(d("59.23")))
	assert.True(t, result.Loan.OutstandingBalance.Equal(d("92115.12")))
}

func TestLoanService_MakePayment_Rejections(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	loan := activeLoan(t, f, "")
	f.at(day(2026, 1, 31))

	tests := []struct {
		name     string
		request  *domain.MakePaymentRequest
		wantCode string
	}{
		{"zero amount", emiRequest("0"), customError.ErrCodeInvalidPaymentAmount},
		{"sub-cent amount", emiRequest("10.005"), customError.ErrCodeInvalidPaymentAmount},
		{"above payoff", emiRequest("101000.02"), customError.ErrCodePaymentExceedsOutstanding},
		{"short closure", &domain.MakePaymentRequest{Amount: d("50000"), Method: "cash", Type: domain.PaymentTypeClosure}, customError.ErrCodeInvalidPaymentAmount},
		{"future date", &domain.MakePaymentRequest{Amount: d("100"), Method: "cash", PaymentDate: "2026-02-01"}, customError.ErrCodeValidation},
		{"before disbursement", &domain.MakePaymentRequest{Amount: d("100"), Method: "cash", PaymentDate: "2025-12-31"}, customError.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.MakePayment(ctx, loan.ID, tt.request)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, customError.Code(err))
		})
	}

	unchanged, err := f.svc.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, unchanged.OutstandingBalance.Equal(d("100000")), "rejected payments leave the loan untouched")

	payments, err := f.svc.ListPayments(ctx, loan.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestLoanService_PartialPaymentDoesNotAdvance(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	loan := activeLoan(t, f, "")
	f.at(day(2026, 1, 31))

	result, err := f.svc.MakePayment(ctx, loan.ID, emiRequest("3000"))
	require.NoError(t, err)
	assert.Nil(t, result.Payment.InstallmentIndex)
	assert.Equal(t, 0, result.Loan.PaidInstallments)
	assert.True(t, result.Payment.InterestComponent.Equal(d("1000")))
	assert.True(t, result.Payment.PrincipalComponent.Equal(d("2000")))
	assert.True(t, result.Loan.OutstandingBalance.Equal(d("98000")))
}

func TestLoanService_ClosureAndPreview(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	loan := activeLoan(t, f, "")
	f.at(day(2026, 1, 31))

	preview, err := f.svc.PreviewPayment(ctx, loan.ID, d("101000"))
	require.NoError(t, err)
	assert.True(t, preview.RemainingBalance.IsZero())

	result, err := f.svc.MakePayment(ctx, loan.ID, &domain.MakePaymentRequest{
		Amount: d("101000"),
		Method: "bank_transfer",
		Type:   domain.PaymentTypeClosure,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusClosed, result.Loan.Status)
	assert.True(t, result.Loan.OutstandingBalance.IsZero())
	assert.Nil(t, result.Loan.NextDueDate)
	assert.True(t, result.Payment.ClosedLoan)

	_, err = f.svc.MakePayment(ctx, loan.ID, emiRequest("100"))
	assert.Equal(t, customError.ErrCodeLoanNotActive, customError.Code(err))

	_, err = f.svc.PreviewPayment(ctx, loan.ID, d("100"))
	assert.Equal(t, customError.ErrCodeLoanNotActive, customError.Code(err))

	// reversing the closing payment reopens the loan
	reversed, err := f.svc.ReversePayment(ctx, result.Payment.ID, "cheque bounced")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, reversed.Loan.Status)
	assert.True(t, reversed.Loan.OutstandingBalance.Equal(d("100000")))
}

func TestLoanService_ReversePayment(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	loan := activeLoan(t, f, "")
	before := loan.State()

	f.at(day(2026, 1, 31))
	paid, err := f.svc.MakePayment(ctx, loan.ID, emiRequest("8884.88"))
	require.NoError(t, err)

	result, err := f.svc.ReversePayment(ctx, paid.Payment.ID, "duplicate")
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusReversed, result.Original.Status)
	require.NotNil(t, result.Original.ReversedBy)
	assert.Equal(t, result.Reversal.ID, *result.Original.ReversedBy)

	assert.Equal(t, "REV_"+paid.Payment.PaymentNumber, result.Reversal.PaymentNumber)
	assert.Equal(t, domain.PaymentTypeReversal, result.Reversal.Type)
	assert.True(t, result.Reversal.Amount.Equal(d("-8884.88")))
	require.NotNil(t, result.Reversal.ReversalOf)
	assert.Equal(t, paid.Payment.ID, *result.Reversal.ReversalOf)

	assert.True(t, result.Loan.State().Equal(before), "reversal restores the prior position")

	_, err = f.svc.ReversePayment(ctx, paid.Payment.ID, "again")
	assert.Equal(t, customError.ErrCodeAlreadyReversed, customError.Code(err))

	_, err = f.svc.ReversePayment(ctx, result.Reversal.ID, "undo the undo")
	assert.Equal(t, customError.ErrCodeReversalNotReversible, customError.Code(err))

	payments, err := f.svc.ListPayments(ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestLoanService_PendingPayments(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	loan := activeLoan(t, f, "")
	f.at(day(2026, 1, 31))

	submitted, err := f.svc.SubmitPayment(ctx, loan.ID, &domain.MakePaymentRequest{Amount: d("8884.88"), Method: "cheque"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, submitted.Status)
	assert.Equal(t, "PAY2026013100001", submitted.PaymentNumber)

	untouched, err := f.svc.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, untouched.OutstandingBalance.Equal(d("100000")))

	_, err = f.svc.ReversePayment(ctx, submitted.ID, "not yet cleared")
	assert.Equal(t, customError.ErrCodeNotCompleted, customError.Code(err))

	confirmed, err := f.svc.ConfirmPayment(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, confirmed.Payment.Status)
	assert.True(t, confirmed.Loan.OutstandingBalance.Equal(d("92115.12")))
	assert.Equal(t, 1, confirmed.Loan.PaidInstallments)

	_, err = f.svc.ConfirmPayment(ctx, submitted.ID)
	assert.Equal(t, customError.ErrCodePaymentNotPending, customError.Code(err))

	bounced, err := f.svc.SubmitPayment(ctx, loan.ID, &domain.MakePaymentRequest{Amount: d("8884.88"), Method: "cheque"})
	require.NoError(t, err)
	assert.Equal(t, "PAY2026013100002", bounced.PaymentNumber)

	failed, err := f.svc.FailPayment(ctx, bounced.ID, "insufficient funds")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, failed.Status)
	assert.Equal(t, "insufficient funds", failed.FailureReason)

	_, err = f.svc.CancelPayment(ctx, bounced.ID)
	assert.Equal(t, customError.ErrCodePaymentNotPending, customError.Code(err))

	withdrawn, err := f.svc.SubmitPayment(ctx, loan.ID, &domain.MakePaymentRequest{Amount: d("100"), Method: "cash"})
	require.NoError(t, err)
	cancelled, err := f.svc.CancelPayment(ctx, withdrawn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCancelled, cancelled.Status)

	final, err := f.svc.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, final.OutstandingBalance.Equal(d("92115.12")), "failed and cancelled payments do not move the balance")
}

func TestLoanService_ConcurrentPaymentsOnOneLoan(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	ctx := context.Background()
	loan := activeLoan(t, f, "")
	f.at(day(2026, 1, 31))

	const workers = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.MakePayment(ctx, loan.ID, emiRequest("2000"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	payments, err := f.svc.ListPayments(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, payments, workers)

	numbers := make(map[string]bool)
	applied := d("0")
	for _, p := range payments {
		numbers[p.PaymentNumber] = true
		applied = applied.Add(p.PrincipalComponent)
	}
	assert.Len(t, numbers, workers)

	final, err := f.svc.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, final.OutstandingBalance.Equal(d("100000").Sub(applied)))
	assert.True(t, final.PrincipalPaid.Equal(applied))
}
