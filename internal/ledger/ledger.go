// Package ledger owns every mutation of a loan's ledger position and of
// payment status. Each operation validates into locals first and only then
// writes, so a failed call leaves loan and payment untouched.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-ledger/internal/allocator"
	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/money"
	"github.com/segyhp/loan-ledger/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const reversalPrefix = "REV_"

// Ledger applies and reverses payments against loans. It holds no loan
// state; callers serialize access per loan (see Locker).
type Ledger struct {
	epsilon decimal.Decimal
	logger  *zap.Logger
}

func New(epsilon decimal.Decimal, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if epsilon.IsNegative() {
		epsilon = decimal.Zero
	}
	return &Ledger{
		epsilon: epsilon,
		logger:  logger,
	}
}

func validComponents(p *domain.Payment) bool {
	for _, c := range []decimal.Decimal{p.Amount, p.InterestComponent, p.PrincipalComponent, p.PenaltyComponent} {
		if c.IsNegative() || !c.Equal(money.Round(c)) {
			return false
		}
	}
	if !p.InterestComponent.Add(p.PrincipalComponent).Equal(p.Amount) {
		return false
	}
	return p.Total().IsPositive()
}

// Apply posts a pending payment to an active loan and completes it.
//
// Principal beyond the outstanding balance is refused unless it is within
// the fold tolerance (see allocator.FoldTolerance), in which case it is
// folded back so the balance lands on zero and the payment records what was
// actually applied.
func (l *Ledger) Apply(loan *domain.Loan, payment *domain.Payment) error {
	if payment.LoanID != loan.ID {
		return customError.WrapPaymentLoanMismatch(payment.ID.String(), loan.ID.String())
	}
	if !loan.AcceptsPayments() {
		return customError.WrapLoanNotActive(loan.ID.String(), string(loan.Status))
	}
	if payment.Status != domain.PaymentStatusPending {
		return customError.WrapPaymentNotPending(payment.ID.String(), string(payment.Status))
	}
	if payment.IsReversal() {
		return customError.WrapInvalidTransition(string(domain.PaymentTypeReversal), string(domain.PaymentStatusCompleted))
	}
	if !validComponents(payment) {
		return customError.WrapInvalidPaymentAmount(payment.Amount.String())
	}

	advanced := false
	paid := loan.PaidInstallments
	if idx := payment.InstallmentIndex; idx != nil {
		if *idx < 1 || *idx > loan.TotalInstallments || *idx > loan.PaidInstallments+1 {
			return customError.WrapInstallmentOutOfOrder(*idx, loan.PaidInstallments)
		}
		if *idx > paid {
			paid = *idx
			advanced = true
		}
	}

	principal := payment.PrincipalComponent
	amount := payment.Amount
	overflow := principal.Sub(loan.OutstandingBalance)
	if overflow.GreaterThan(allocator.FoldTolerance(loan, l.epsilon)) {
		return customError.WrapPaymentExceedsOutstanding(
			money.Format(payment.Amount), money.Format(allocator.PayoffAmount(loan)))
	}
	if overflow.IsPositive() {
		principal = loan.OutstandingBalance
		amount = amount.Sub(overflow)
	}

	outstanding := loan.OutstandingBalance.Sub(principal)
	nextDue := loan.NextDueDate
	if advanced && loan.FirstDueDate != nil {
		next := utils.CalculateDueDate(*loan.FirstDueDate, paid+1)
		nextDue = &next
	}

	status := loan.Status
	closes := paid == loan.TotalInstallments || outstanding.LessThanOrEqual(l.epsilon)
	if closes {
		status = domain.LoanStatusClosed
		nextDue = nil
	}

	// validated; mutate
	loan.OutstandingBalance = outstanding
	loan.PrincipalPaid = loan.PrincipalPaid.Add(principal)
	loan.InterestPaid = loan.InterestPaid.Add(payment.InterestComponent)
	loan.PenaltyPaid = loan.PenaltyPaid.Add(payment.PenaltyComponent)
	loan.PaidInstallments = paid
	loan.NextDueDate = nextDue
	loan.Status = status

	payment.PrincipalComponent = principal
	payment.Amount = amount
	payment.Status = domain.PaymentStatusCompleted
	payment.InstallmentAdvanced = advanced
	payment.ClosedLoan = closes

	l.logger.Debug("payment applied",
		zap.String("loan_id", loan.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("principal", principal.String()),
		zap.String("interest", payment.InterestComponent.String()),
		zap.String("outstanding", outstanding.String()),
		zap.Bool("closed", closes),
	)

	return nil
}

// Reverse offsets a completed payment with a new completed entry carrying
// the negated components, and undoes its effect on the loan exactly.
func (l *Ledger) Reverse(loan *domain.Loan, original *domain.Payment, reason string, at time.Time) (*domain.Payment, error) {
	if original.LoanID != loan.ID {
		return nil, customError.WrapPaymentLoanMismatch(original.ID.String(), loan.ID.String())
	}
	if original.IsReversal() {
		return nil, customError.WrapReversalNotReversible(original.ID.String())
	}
	if original.Status == domain.PaymentStatusReversed || original.ReversedBy != nil {
		return nil, customError.WrapAlreadyReversed(original.ID.String())
	}
	if original.Status != domain.PaymentStatusCompleted {
		return nil, customError.WrapNotCompleted(original.ID.String(), string(original.Status))
	}
	switch loan.Status {
	case domain.LoanStatusActive, domain.LoanStatusDefaulted:
	case domain.LoanStatusClosed:
		// only the payment that closed the loan can reopen it; a written-off
		// balance never grows back
		if !original.ClosedLoan || loan.ClosedAt != nil {
			return nil, customError.WrapLoanNotActive(loan.ID.String(), string(loan.Status))
		}
	default:
		return nil, customError.WrapLoanNotActive(loan.ID.String(), string(loan.Status))
	}
	if original.InstallmentAdvanced && loan.PaidInstallments == 0 {
		return nil, customError.WrapInstallmentOutOfOrder(0, loan.PaidInstallments)
	}

	paid := loan.PaidInstallments
	if original.InstallmentAdvanced {
		paid--
	}

	status := loan.Status
	if original.ClosedLoan && status == domain.LoanStatusClosed {
		status = domain.LoanStatusActive
	}

	nextDue := loan.NextDueDate
	if (original.InstallmentAdvanced || original.ClosedLoan) && loan.FirstDueDate != nil {
		next := utils.CalculateDueDate(*loan.FirstDueDate, paid+1)
		nextDue = &next
	}
	if status == domain.LoanStatusClosed {
		nextDue = nil
	}

	originalID := original.ID
	reversal := &domain.Payment{
		ID:                  uuid.New(),
		PaymentNumber:       reversalPrefix + original.PaymentNumber,
		LoanID:              loan.ID,
		Type:                domain.PaymentTypeReversal,
		Method:              original.Method,
		Reference:           original.Reference,
		Amount:              original.Amount.Neg(),
		InterestComponent:   original.InterestComponent.Neg(),
		PrincipalComponent:  original.PrincipalComponent.Neg(),
		PenaltyComponent:    original.PenaltyComponent.Neg(),
		PaymentDate:         at,
		DueDate:             original.DueDate,
		InstallmentIndex:    original.InstallmentIndex,
		Status:              domain.PaymentStatusCompleted,
		ReversalOf:          &originalID,
		ReversalReason:      reason,
		InstallmentAdvanced: original.InstallmentAdvanced,
		ClosedLoan:          original.ClosedLoan,
		CreatedAt:           at,
		UpdatedAt:           at,
	}

	// validated; mutate
	loan.OutstandingBalance = loan.OutstandingBalance.Add(original.PrincipalComponent)
	loan.PrincipalPaid = loan.PrincipalPaid.Sub(original.PrincipalComponent)
	loan.InterestPaid = loan.InterestPaid.Sub(original.InterestComponent)
	loan.PenaltyPaid = loan.PenaltyPaid.Sub(original.PenaltyComponent)
	loan.PaidInstallments = paid
	loan.NextDueDate = nextDue
	loan.Status = status

	original.Status = domain.PaymentStatusReversed
	original.ReversedBy = &reversal.ID
	original.ReversalReason = reason
	original.UpdatedAt = at

	l.logger.Info("payment reversed",
		zap.String("loan_id", loan.ID.String()),
		zap.String("payment_id", original.ID.String()),
		zap.String("reversal_id", reversal.ID.String()),
		zap.String("reason", reason),
	)

	return reversal, nil
}
