package service

import (
	"context"
	"fmt"
	"time"

	"github.com/segyhp/loan-ledger/internal/allocator"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/overdue"
	"github.com/segyhp/loan-ledger/pkg/money"
	"github.com/segyhp/loan-ledger/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

func percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, 2)
}

// previousMonthEnd is the last day of the month before today's.
func previousMonthEnd(today time.Time) time.Time {
	y, m, _ := today.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, today.Location()).AddDate(0, 0, -1)
}

// PortfolioMetrics aggregates every loan. The previous overdue figure is
// rebuilt from each loan's payment history as of last month's end.
func (s *LoanService) PortfolioMetrics(ctx context.Context) (*domain.PortfolioMetrics, error) {
	loans, err := s.LoanRepo.ListByStatus(ctx)
	if err != nil {
		return nil, dbError(err)
	}

	today := s.now()
	previous := previousMonthEnd(utils.DateOnly(today))

	metrics := &domain.PortfolioMetrics{
		AsOf:                  utils.DateOnly(today),
		TotalPrincipal:        decimal.Zero,
		TotalDisbursed:        decimal.Zero,
		TotalOutstanding:      decimal.Zero,
		CollectionEfficiency:  decimal.Zero,
		OverduePercentage:     decimal.Zero,
		OverdueAmount:         decimal.Zero,
		PreviousOverdueAmount: decimal.Zero,
		AverageLoanSize:       decimal.Zero,
	}

	booked := 0
	receivable := 0
	collected := decimal.Zero
	dueToDate := decimal.Zero

	for _, loan := range loans {
		metrics.TotalLoans++
		if loan.Status == domain.LoanStatusRejected {
			continue
		}
		booked++
		metrics.TotalPrincipal = metrics.TotalPrincipal.Add(loan.Principal)

		if loan.DisbursementDate == nil {
			continue
		}
		metrics.TotalDisbursed = metrics.TotalDisbursed.Add(loan.DisbursedAmount)
		collected = collected.Add(loan.PrincipalPaid).Add(loan.InterestPaid)

		elapsed := overdue.CurrentInstallmentNumber(loan, today) - 1
		if loan.Status == domain.LoanStatusClosed {
			elapsed = loan.PaidInstallments
		}
		if elapsed > 0 {
			dueToDate = dueToDate.Add(loan.InstallmentAmount.Mul(decimal.NewFromInt(int64(elapsed))))
		}

		if loan.Status == domain.LoanStatusActive {
			metrics.ActiveLoans++
		}
		if loan.Status == domain.LoanStatusActive || loan.Status == domain.LoanStatusDefaulted {
			receivable++
			metrics.TotalOutstanding = metrics.TotalOutstanding.Add(loan.OutstandingBalance)
		}

		if amount := overdue.OverdueAmount(loan, today); amount.IsPositive() {
			metrics.OverdueLoans++
			metrics.OverdueAmount = metrics.OverdueAmount.Add(amount)
		}

		payments, err := s.PaymentRepo.ListByLoanID(ctx, loan.ID)
		if err != nil {
			return nil, dbError(err)
		}
		metrics.PreviousOverdueAmount = metrics.PreviousOverdueAmount.Add(
			overdue.OverdueAmountAsOf(loan, payments, previous))
	}

	metrics.OverduePercentage = percentage(decimal.NewFromInt(int64(metrics.OverdueLoans)), decimal.NewFromInt(int64(receivable)))
	metrics.CollectionEfficiency = money.Min(percentage(collected, dueToDate), hundred)
	if booked > 0 {
		metrics.AverageLoanSize = metrics.TotalPrincipal.DivRound(decimal.NewFromInt(int64(booked)), 2)
	}

	return metrics, nil
}

// OverdueSweep assesses every loan that can fall behind, notifies borrowers
// with overdue installments and defaults active loans past the configured
// age. Failures on one loan are logged and do not stop the sweep.
func (s *LoanService) OverdueSweep(ctx context.Context) (*domain.SweepReport, error) {
	loans, err := s.LoanRepo.ListByStatus(ctx, domain.LoanStatusActive, domain.LoanStatusDefaulted)
	if err != nil {
		return nil, dbError(err)
	}

	today := s.now()
	report := &domain.SweepReport{AsOf: utils.DateOnly(today)}

	for _, loan := range loans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		assessment := overdue.Assess(loan, today, s.opts.LatePolicy, s.opts.DelinquencyThreshold)
		if assessment.OverdueInstallments == 0 {
			continue
		}
		report.Overdue++
		if assessment.IsDelinquent {
			report.Delinquent++
		}

		if s.opts.DefaultAfterDays > 0 && loan.Status == domain.LoanStatusActive && assessment.DaysPastDue >= s.opts.DefaultAfterDays {
			reason := fmt.Sprintf("%d days past due", assessment.DaysPastDue)
			if defaulted, err := s.MarkDefaulted(ctx, loan.ID, reason); err != nil {
				s.logger.Error("failed to default loan", zap.String("loan_id", loan.ID.String()), zap.Error(err))
			} else {
				report.Defaulted++
				loan = defaulted
			}
		}

		if loan.CustomerEmail == "" {
			continue
		}
		if err := s.notifier.OverdueNotice(ctx, loan, assessment); err != nil {
			s.logger.Warn("failed to send overdue notice", zap.String("loan_id", loan.ID.String()), zap.Error(err))
			continue
		}
		report.Notified++
	}

	s.logger.Info("overdue sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("overdue", report.Overdue),
		zap.Int("delinquent", report.Delinquent),
		zap.Int("defaulted", report.Defaulted),
		zap.Int("notified", report.Notified),
	)

	return report, nil
}

// UpcomingDues lists active loans whose next installment falls within the
// next withinDays days, today included.
func (s *LoanService) UpcomingDues(ctx context.Context, withinDays int) ([]*domain.Loan, error) {
	loans, err := s.LoanRepo.ListByStatus(ctx, domain.LoanStatusActive)
	if err != nil {
		return nil, dbError(err)
	}

	today := utils.DateOnly(s.now())
	horizon := today.AddDate(0, 0, withinDays)

	var upcoming []*domain.Loan
	for _, loan := range loans {
		if loan.NextDueDate == nil {
			continue
		}
		due := utils.DateOnly(loan.NextDueDate.UTC())
		if due.Before(today) || due.After(horizon) {
			continue
		}
		upcoming = append(upcoming, loan)
	}
	return upcoming, nil
}

// SendReminders mails borrowers whose installment is due within the
// reminder lead time and returns how many were sent.
func (s *LoanService) SendReminders(ctx context.Context) (int, error) {
	loans, err := s.UpcomingDues(ctx, s.opts.ReminderLeadDays)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, loan := range loans {
		if loan.CustomerEmail == "" {
			continue
		}
		amount := money.Min(loan.InstallmentAmount, allocator.PayoffAmount(loan))
		if err := s.notifier.PaymentReminder(ctx, loan, *loan.NextDueDate, amount); err != nil {
			s.logger.Warn("failed to send payment reminder", zap.String("loan_id", loan.ID.String()), zap.Error(err))
			continue
		}
		sent++
	}

	s.logger.Info("payment reminders sent", zap.Int("candidates", len(loans)), zap.Int("sent", sent))
	return sent, nil
}
