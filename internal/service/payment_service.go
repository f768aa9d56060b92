package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-ledger/internal/allocator"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/overdue"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/money"
	"github.com/segyhp/loan-ledger/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PreviewPayment shows how amount would be split against the loan right now
// without recording anything.
func (s *LoanService) PreviewPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*domain.Allocation, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.AcceptsPayments() {
		return nil, customError.WrapLoanNotActive(loan.ID.String(), string(loan.Status))
	}

	alloc, err := s.allocator.Allocate(loan, amount)
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}

// paymentDate parses an optional YYYY-MM-DD date; future dates are refused.
func (s *LoanService) paymentDate(value string) (time.Time, error) {
	now := s.now()
	if value == "" {
		return now, nil
	}

	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, customError.WrapValidationError(err)
	}
	if date.After(utils.DateOnly(now)) {
		return time.Time{}, customError.WrapValidationError(fmt.Errorf("payment date %s is in the future", value))
	}
	return date, nil
}

func (s *LoanService) newPayment(loanID uuid.UUID, request *domain.MakePaymentRequest, paidAt time.Time) *domain.Payment {
	paymentType := request.Type
	if paymentType == "" {
		paymentType = domain.PaymentTypeEMI
	}

	now := s.now()
	return &domain.Payment{
		ID:                 uuid.New(),
		LoanID:             loanID,
		Type:               paymentType,
		Method:             request.Method,
		Reference:          request.Reference,
		Amount:             request.Amount,
		InterestComponent:  decimal.Zero,
		PrincipalComponent: decimal.Zero,
		PenaltyComponent:   decimal.Zero,
		PaymentDate:        paidAt,
		Status:             domain.PaymentStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// price fills in the components of a pending payment from the requested
// amount and the loan's current position.
//
// EMI payments that cover the installment (or the payoff, when that is
// smaller) settle the next installment and carry its late fee. Shorter EMI
// payments are applied without advancing the installment counter.
func (s *LoanService) price(loan *domain.Loan, payment *domain.Payment, requested decimal.Decimal) error {
	payment.InstallmentIndex = nil
	payment.DueDate = nil
	payment.DaysLate = 0
	payment.PenaltyComponent = decimal.Zero

	if payment.Type == domain.PaymentTypePenalty {
		if !requested.IsPositive() || !requested.Equal(money.Round(requested)) {
			return customError.WrapInvalidPaymentAmount(requested.String())
		}
		payment.Amount = decimal.Zero
		payment.InterestComponent = decimal.Zero
		payment.PrincipalComponent = decimal.Zero
		payment.PenaltyComponent = requested
		return nil
	}

	alloc, err := s.allocator.Allocate(loan, requested)
	if err != nil {
		return err
	}

	payoff := allocator.PayoffAmount(loan)
	if payment.Type == domain.PaymentTypeClosure && requested.Add(s.opts.Epsilon).LessThan(payoff) {
		return customError.WrapInvalidPaymentAmount(
			fmt.Sprintf("%s is below the payoff amount %s", money.Format(requested), money.Format(payoff)))
	}

	payment.Amount = requested
	payment.InterestComponent = alloc.InterestComponent
	payment.PrincipalComponent = alloc.PrincipalComponent

	if payment.Type != domain.PaymentTypeEMI || loan.FirstDueDate == nil || loan.PaidInstallments >= loan.TotalInstallments {
		return nil
	}
	covers := money.Min(loan.InstallmentAmount, payoff).Sub(s.opts.Epsilon)
	if requested.LessThan(covers) {
		return nil
	}

	index := loan.PaidInstallments + 1
	due := utils.CalculateDueDate(*loan.FirstDueDate, index)
	payment.InstallmentIndex = &index
	payment.DueDate = &due
	if days := utils.DaysBetween(due, payment.PaymentDate); days > 0 {
		payment.DaysLate = days
		payment.PenaltyComponent = overdue.LateFee(loan.InstallmentAmount, days, s.opts.LatePolicy)
	}
	return nil
}

// settle prices and applies a pending payment. It only touches loan and
// payment in memory; callers persist both.
func (s *LoanService) settle(loan *domain.Loan, payment *domain.Payment, requested decimal.Decimal) error {
	if !loan.AcceptsPayments() {
		return customError.WrapLoanNotActive(loan.ID.String(), string(loan.Status))
	}
	if loan.DisbursementDate != nil && utils.DateOnly(payment.PaymentDate).Before(*loan.DisbursementDate) {
		return customError.WrapValidationError(fmt.Errorf("payment date precedes disbursement on %s",
			loan.DisbursementDate.Format("2006-01-02")))
	}

	if err := s.price(loan, payment, requested); err != nil {
		return err
	}
	if err := s.ledger.Apply(loan, payment); err != nil {
		return err
	}
	payment.UpdatedAt = s.now()
	return nil
}

func (s *LoanService) sendReceipt(ctx context.Context, loan *domain.Loan, payment *domain.Payment) {
	if err := s.notifier.PaymentReceipt(ctx, loan, payment); err != nil {
		s.logger.Warn("failed to send payment receipt",
			zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}
}

// MakePayment records and applies a payment in one step.
func (s *LoanService) MakePayment(ctx context.Context, loanID uuid.UUID, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error) {
	paidAt, err := s.paymentDate(request.PaymentDate)
	if err != nil {
		return nil, err
	}
	payment := s.newPayment(loanID, request, paidAt)

	var loan *domain.Loan
	err = s.withLoanLocked(ctx, loanID, func(loans repository.LoanRepository, payments repository.PaymentRepository) error {
		current, err := loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if err := s.settle(current, payment, request.Amount); err != nil {
			return err
		}

		number, err := nextPaymentNumber(ctx, payments, s.now())
		if err != nil {
			return err
		}
		payment.PaymentNumber = number

		if err := payments.Create(ctx, payment); err != nil {
			return err
		}
		if err := loans.Update(ctx, current); err != nil {
			return err
		}
		loan = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment completed",
		zap.String("loan_id", loan.ID.String()),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("amount", payment.Amount.String()),
		zap.String("penalty", payment.PenaltyComponent.String()),
		zap.String("outstanding", loan.OutstandingBalance.String()),
	)
	s.sendReceipt(ctx, loan, payment)

	return &domain.MakePaymentResponse{Payment: payment, Loan: loan}, nil
}

// SubmitPayment records a payment that has not cleared yet, such as a
// cheque. It is allocated only when confirmed.
func (s *LoanService) SubmitPayment(ctx context.Context, loanID uuid.UUID, request *domain.MakePaymentRequest) (*domain.Payment, error) {
	if !request.Amount.IsPositive() || !request.Amount.Equal(money.Round(request.Amount)) {
		return nil, customError.WrapInvalidPaymentAmount(request.Amount.String())
	}
	paidAt, err := s.paymentDate(request.PaymentDate)
	if err != nil {
		return nil, err
	}
	payment := s.newPayment(loanID, request, paidAt)

	err = s.inTx(ctx, func(loans repository.LoanRepository, payments repository.PaymentRepository) error {
		loan, err := loans.GetByID(ctx, loanID)
		if err != nil {
			return err
		}
		if !loan.AcceptsPayments() {
			return customError.WrapLoanNotActive(loan.ID.String(), string(loan.Status))
		}

		number, err := nextPaymentNumber(ctx, payments, s.now())
		if err != nil {
			return err
		}
		payment.PaymentNumber = number
		return payments.Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// withPaymentLocked resolves the payment's loan, locks it and hands fn the
// payment reloaded inside the transaction.
func (s *LoanService) withPaymentLocked(ctx context.Context, paymentID uuid.UUID, fn func(loans repository.LoanRepository, payments repository.PaymentRepository, payment *domain.Payment) error) error {
	payment, err := s.PaymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return dbError(err)
	}

	return s.withLoanLocked(ctx, payment.LoanID, func(loans repository.LoanRepository, payments repository.PaymentRepository) error {
		current, err := payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		return fn(loans, payments, current)
	})
}

// ConfirmPayment allocates and applies a pending payment against the loan
// as it stands now.
func (s *LoanService) ConfirmPayment(ctx context.Context, paymentID uuid.UUID) (*domain.MakePaymentResponse, error) {
	var result domain.MakePaymentResponse
	err := s.withPaymentLocked(ctx, paymentID, func(loans repository.LoanRepository, payments repository.PaymentRepository, payment *domain.Payment) error {
		if payment.Status != domain.PaymentStatusPending {
			return customError.WrapPaymentNotPending(payment.ID.String(), string(payment.Status))
		}
		loan, err := loans.GetByIDForUpdate(ctx, payment.LoanID)
		if err != nil {
			return err
		}

		if err := s.settle(loan, payment, payment.Amount); err != nil {
			return err
		}

		if err := payments.Update(ctx, payment); err != nil {
			return err
		}
		if err := loans.Update(ctx, loan); err != nil {
			return err
		}
		result = domain.MakePaymentResponse{Payment: payment, Loan: loan}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendReceipt(ctx, result.Loan, result.Payment)
	return &result, nil
}

func (s *LoanService) FailPayment(ctx context.Context, paymentID uuid.UUID, reason string) (*domain.Payment, error) {
	var result *domain.Payment
	err := s.withPaymentLocked(ctx, paymentID, func(_ repository.LoanRepository, payments repository.PaymentRepository, payment *domain.Payment) error {
		if err := s.ledger.FailPayment(payment, reason, s.now()); err != nil {
			return err
		}
		result = payment
		return payments.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LoanService) CancelPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	var result *domain.Payment
	err := s.withPaymentLocked(ctx, paymentID, func(_ repository.LoanRepository, payments repository.PaymentRepository, payment *domain.Payment) error {
		if err := s.ledger.CancelPayment(payment, s.now()); err != nil {
			return err
		}
		result = payment
		return payments.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReversePayment offsets a completed payment and restores the loan to the
// position it had before that payment.
func (s *LoanService) ReversePayment(ctx context.Context, paymentID uuid.UUID, reason string) (*domain.ReversePaymentResponse, error) {
	var result domain.ReversePaymentResponse
	err := s.withPaymentLocked(ctx, paymentID, func(loans repository.LoanRepository, payments repository.PaymentRepository, original *domain.Payment) error {
		loan, err := loans.GetByIDForUpdate(ctx, original.LoanID)
		if err != nil {
			return err
		}

		reversal, err := s.ledger.Reverse(loan, original, reason, s.now())
		if err != nil {
			return err
		}

		// the reversal row must exist before the original can point at it
		if err := payments.Create(ctx, reversal); err != nil {
			return err
		}
		if err := payments.Update(ctx, original); err != nil {
			return err
		}
		if err := loans.Update(ctx, loan); err != nil {
			return err
		}

		result = domain.ReversePaymentResponse{Original: original, Reversal: reversal, Loan: loan}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *LoanService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.PaymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, dbError(err)
	}
	return payment, nil
}

// ListPayments returns the loan's ledger entries in order.
func (s *LoanService) ListPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.ListByLoanID(ctx, loanID)
	if err != nil {
		return nil, dbError(err)
	}
	return payments, nil
}
