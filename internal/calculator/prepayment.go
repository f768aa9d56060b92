package calculator

import (
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/money"
	"github.com/segyhp/loan-ledger/pkg/utils"

	"github.com/shopspring/decimal"
)

// PrepaymentSavings compares the original schedule of terms (starting at
// startDate) with the schedule that follows a principal prepayment made right
// after installment afterPeriod has been paid. afterPeriod 0 means before the
// first installment.
//
// ReduceInstallment keeps the remaining tenure and recomputes the EMI on the
// reduced balance; ReduceTenure keeps the EMI and finishes early.
func PrepaymentSavings(terms domain.LoanTerms, startDate time.Time, prepayment decimal.Decimal, afterPeriod int, mode domain.PrepaymentMode) (*domain.PrepaymentReport, error) {
	if !prepayment.IsPositive() {
		return nil, customError.WrapInvalidPaymentAmount(prepayment.String())
	}
	if afterPeriod < 0 || afterPeriod >= terms.TermMonths {
		return nil, customError.WrapInvalidLoanTerms("prepayment must fall before the final installment")
	}
	if mode == "" {
		mode = domain.PrepaymentReduceInstallment
	}

	schedule, err := GenerateSchedule(terms.Principal, terms.AnnualRate, terms.TermMonths, startDate)
	if err != nil {
		return nil, err
	}

	outstandingBefore := terms.Principal
	if afterPeriod > 0 {
		outstandingBefore = schedule[afterPeriod-1].BalanceAfter
	}

	remainingMonths := terms.TermMonths - afterPeriod
	originalInterest := TotalInterest(schedule[afterPeriod:])
	prepayment = money.Round(prepayment)

	report := &domain.PrepaymentReport{
		Mode:                      mode,
		AfterPeriod:               afterPeriod,
		Prepayment:                prepayment,
		OutstandingBefore:         outstandingBefore,
		OriginalInstallment:       schedule[0].Installment,
		OriginalTenure:            terms.TermMonths,
		OriginalRemainingInterest: originalInterest,
	}

	outstandingAfter := outstandingBefore.Sub(prepayment)
	if !outstandingAfter.IsPositive() {
		report.FullPrepayment = true
		report.OutstandingAfter = decimal.Zero
		report.NewInstallment = decimal.Zero
		report.NewTenure = afterPeriod
		report.MonthsSaved = remainingMonths
		report.NewRemainingInterest = decimal.Zero
		report.InterestSaved = originalInterest
		return report, nil
	}
	report.OutstandingAfter = outstandingAfter

	r := money.MonthlyRate(terms.AnnualRate)
	nextDue := utils.CalculateDueDate(startDate, afterPeriod+1)

	var rest []domain.ScheduleEntry
	switch mode {
	case domain.PrepaymentReduceTenure:
		rest = amortize(outstandingAfter, r, report.OriginalInstallment, remainingMonths, nextDue, true)
		report.NewInstallment = report.OriginalInstallment
	default:
		report.NewInstallment = emi(outstandingAfter, r, remainingMonths)
		rest = amortize(outstandingAfter, r, report.NewInstallment, remainingMonths, nextDue, false)
	}

	report.NewTenure = afterPeriod + len(rest)
	report.MonthsSaved = terms.TermMonths - report.NewTenure
	report.NewRemainingInterest = TotalInterest(rest)
	report.InterestSaved = originalInterest.Sub(report.NewRemainingInterest)

	return report, nil
}
