package ledger

import (
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultFirstDueOffsetDays separates disbursement from the first due date
// when no offset is configured.
const DefaultFirstDueOffsetDays = 30

var loanTransitions = map[domain.LoanStatus][]domain.LoanStatus{
	domain.LoanStatusPending:   {domain.LoanStatusApproved, domain.LoanStatusRejected},
	domain.LoanStatusApproved:  {domain.LoanStatusActive, domain.LoanStatusRejected},
	domain.LoanStatusActive:    {domain.LoanStatusClosed, domain.LoanStatusDefaulted},
	domain.LoanStatusDefaulted: {domain.LoanStatusClosed},
}

// CanTransition reports whether a loan may move from one status to another.
func CanTransition(from, to domain.LoanStatus) bool {
	for _, allowed := range loanTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (l *Ledger) transition(loan *domain.Loan, to domain.LoanStatus) error {
	if !CanTransition(loan.Status, to) {
		return customError.WrapInvalidTransition(string(loan.Status), string(to))
	}
	l.logger.Info("loan status changed",
		zap.String("loan_id", loan.ID.String()),
		zap.String("from", string(loan.Status)),
		zap.String("to", string(to)),
	)
	loan.Status = to
	return nil
}

func (l *Ledger) Approve(loan *domain.Loan, at time.Time) error {
	if err := l.transition(loan, domain.LoanStatusApproved); err != nil {
		return err
	}
	loan.ApprovalDate = &at
	return nil
}

func (l *Ledger) Reject(loan *domain.Loan, reason string, at time.Time) error {
	if err := l.transition(loan, domain.LoanStatusRejected); err != nil {
		return err
	}
	loan.StatusReason = reason
	loan.ApprovalDate = &at
	return nil
}

// Disburse activates an approved loan: the full principal becomes
// outstanding, the first installment falls firstDueOffsetDays after the
// disbursement date and the loan matures on its last installment.
func (l *Ledger) Disburse(loan *domain.Loan, at time.Time, firstDueOffsetDays int) error {
	if firstDueOffsetDays < 0 {
		firstDueOffsetDays = DefaultFirstDueOffsetDays
	}
	if err := l.transition(loan, domain.LoanStatusActive); err != nil {
		return err
	}

	disbursed := utils.DateOnly(at)
	firstDue := disbursed.AddDate(0, 0, firstDueOffsetDays)
	nextDue := firstDue
	maturity := utils.CalculateDueDate(firstDue, loan.TotalInstallments)

	loan.DisbursementDate = &disbursed
	loan.DisbursedAmount = loan.Principal
	loan.FirstDueDate = &firstDue
	loan.MaturityDate = &maturity
	loan.LoanState = domain.LoanState{
		OutstandingBalance: loan.Principal,
		PrincipalPaid:      decimal.Zero,
		InterestPaid:       decimal.Zero,
		PenaltyPaid:        decimal.Zero,
		PaidInstallments:   0,
		NextDueDate:        &nextDue,
		Status:             domain.LoanStatusActive,
	}
	return nil
}

func (l *Ledger) MarkDefaulted(loan *domain.Loan, reason string) error {
	if err := l.transition(loan, domain.LoanStatusDefaulted); err != nil {
		return err
	}
	loan.StatusReason = reason
	return nil
}

// ForceClose closes an active or defaulted loan regardless of its balance.
// Whatever is still outstanding stays on the record as written off.
func (l *Ledger) ForceClose(loan *domain.Loan, reason string, at time.Time) error {
	if err := l.transition(loan, domain.LoanStatusClosed); err != nil {
		return err
	}
	closed := utils.DateOnly(at)
	loan.StatusReason = reason
	loan.NextDueDate = nil
	loan.ClosedAt = &closed
	return nil
}

// FailPayment and CancelPayment end a pending payment without touching the
// loan.
func (l *Ledger) FailPayment(payment *domain.Payment, reason string, at time.Time) error {
	if payment.Status != domain.PaymentStatusPending {
		return customError.WrapPaymentNotPending(payment.ID.String(), string(payment.Status))
	}
	payment.Status = domain.PaymentStatusFailed
	payment.FailureReason = reason
	payment.UpdatedAt = at
	return nil
}

func (l *Ledger) CancelPayment(payment *domain.Payment, at time.Time) error {
	if payment.Status != domain.PaymentStatusPending {
		return customError.WrapPaymentNotPending(payment.ID.String(), string(payment.Status))
	}
	payment.Status = domain.PaymentStatusCancelled
	payment.UpdatedAt = at
	return nil
}
