package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduleEntry represents one period of an amortization schedule
type ScheduleEntry struct {
	Period       int             `json:"period"`
	DueDate      time.Time       `json:"due_date"`
	Installment  decimal.Decimal `json:"installment"`
	InterestDue  decimal.Decimal `json:"interest_due"`
	PrincipalDue decimal.Decimal `json:"principal_due"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

type ScheduleResponse struct {
	LoanID        uuid.UUID       `json:"loan_id"`
	Installment   decimal.Decimal `json:"installment"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	Schedule      []ScheduleEntry `json:"schedule"`
}

type PrepaymentMode string

const (
	PrepaymentReduceInstallment PrepaymentMode = "reduce_installment"
	PrepaymentReduceTenure      PrepaymentMode = "reduce_tenure"
)

type PrepaymentQuoteRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,decimal_gt=0"`
	AfterPeriod *int            `json:"after_period,omitempty" validate:"omitempty,gte=0"` // defaults to installments paid
	Mode        PrepaymentMode  `json:"mode" validate:"omitempty,oneof=reduce_installment reduce_tenure"`
}

// PrepaymentReport compares the original schedule with the one that follows
// a lump-sum principal prepayment made right after AfterPeriod.
type PrepaymentReport struct {
	Mode                      PrepaymentMode  `json:"mode"`
	AfterPeriod               int             `json:"after_period"`
	Prepayment                decimal.Decimal `json:"prepayment"`
	OutstandingBefore         decimal.Decimal `json:"outstanding_before"`
	OutstandingAfter          decimal.Decimal `json:"outstanding_after"`
	FullPrepayment            bool            `json:"full_prepayment"`
	OriginalInstallment       decimal.Decimal `json:"original_installment"`
	NewInstallment            decimal.Decimal `json:"new_installment"`
	OriginalTenure            int             `json:"original_tenure"`
	NewTenure                 int             `json:"new_tenure"`
	MonthsSaved               int             `json:"months_saved"`
	OriginalRemainingInterest decimal.Decimal `json:"original_remaining_interest"`
	NewRemainingInterest      decimal.Decimal `json:"new_remaining_interest"`
	InterestSaved             decimal.Decimal `json:"interest_saved"`
}
