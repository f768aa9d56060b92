package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusActive    LoanStatus = "active" // disbursed and repaying
	LoanStatusClosed    LoanStatus = "closed"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// LoanTerms are the contractual inputs of the amortization. They are frozen
// once the loan is disbursed.
type LoanTerms struct {
	Principal  decimal.Decimal `json:"principal" db:"principal"`
	AnnualRate decimal.Decimal `json:"annual_rate" db:"annual_rate"` // nominal, percent
	TermMonths int             `json:"term_months" db:"term_months"`
}

// LoanState is the mutable ledger position of a loan. Only the ledger
// package writes it.
type LoanState struct {
	OutstandingBalance decimal.Decimal `json:"outstanding_balance" db:"outstanding_balance"`
	PrincipalPaid      decimal.Decimal `json:"principal_paid" db:"principal_paid"`
	InterestPaid       decimal.Decimal `json:"interest_paid" db:"interest_paid"`
	PenaltyPaid        decimal.Decimal `json:"penalty_paid" db:"penalty_paid"`
	PaidInstallments   int             `json:"paid_installments" db:"paid_installments"`
	NextDueDate        *time.Time      `json:"next_due_date,omitempty" db:"next_due_date"`
	Status             LoanStatus      `json:"status" db:"status"`
}

// Loan represents a loan entity
type Loan struct {
	ID            uuid.UUID `json:"id" db:"id"`
	LoanNumber    string    `json:"loan_number" db:"loan_number"`
	CustomerID    string    `json:"customer_id" db:"customer_id"`
	CustomerEmail string    `json:"customer_email,omitempty" db:"customer_email"`
	LoanType      string    `json:"loan_type" db:"loan_type"`

	LoanTerms

	InstallmentAmount decimal.Decimal `json:"installment_amount" db:"installment_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	TotalInterest     decimal.Decimal `json:"total_interest" db:"total_interest"`
	TotalInstallments int             `json:"total_installments" db:"total_installments"`

	LoanState

	DisbursedAmount  decimal.Decimal `json:"disbursed_amount" db:"disbursed_amount"`
	ApplicationDate  time.Time       `json:"application_date" db:"application_date"`
	ApprovalDate     *time.Time      `json:"approval_date,omitempty" db:"approval_date"`
	DisbursementDate *time.Time      `json:"disbursement_date,omitempty" db:"disbursement_date"`
	FirstDueDate     *time.Time      `json:"first_due_date,omitempty" db:"first_due_date"`
	MaturityDate     *time.Time      `json:"maturity_date,omitempty" db:"maturity_date"`
	StatusReason     string          `json:"status_reason,omitempty" db:"status_reason"`
	// ClosedAt is set when a loan is closed administratively. Closure by
	// payment is already recorded on the closing payment.
	ClosedAt *time.Time `json:"closed_at,omitempty" db:"closed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Terms returns a copy of the loan's contractual terms.
func (l *Loan) Terms() LoanTerms {
	return l.LoanTerms
}

// State returns a deep copy of the ledger position, suitable for comparing
// before/after snapshots.
func (l *Loan) State() LoanState {
	s := l.LoanState
	if s.NextDueDate != nil {
		next := *s.NextDueDate
		s.NextDueDate = &next
	}
	return s
}

// AcceptsPayments reports whether new payments may be applied.
func (l *Loan) AcceptsPayments() bool {
	return l.Status == LoanStatusActive
}

// CompletionPercentage is the share of the scheduled total already repaid,
// capped at 100.
func (l *Loan) CompletionPercentage() decimal.Decimal {
	if !l.TotalAmount.IsPositive() {
		return decimal.Zero
	}
	paid := l.PrincipalPaid.Add(l.InterestPaid)
	pct := paid.Div(l.TotalAmount).Mul(decimal.NewFromInt(100)).Round(2)
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return pct
}

// Equal reports whether two states are identical, field by field.
func (s LoanState) Equal(o LoanState) bool {
	if (s.NextDueDate == nil) != (o.NextDueDate == nil) {
		return false
	}
	if s.NextDueDate != nil && !s.NextDueDate.Equal(*o.NextDueDate) {
		return false
	}
	return s.OutstandingBalance.Equal(o.OutstandingBalance) &&
		s.PrincipalPaid.Equal(o.PrincipalPaid) &&
		s.InterestPaid.Equal(o.InterestPaid) &&
		s.PenaltyPaid.Equal(o.PenaltyPaid) &&
		s.PaidInstallments == o.PaidInstallments &&
		s.Status == o.Status
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	CustomerID    string          `json:"customer_id" validate:"required,max=64"`
	CustomerEmail string          `json:"customer_email" validate:"omitempty,email"`
	LoanType      string          `json:"loan_type" validate:"omitempty,max=50"`
	Principal     decimal.Decimal `json:"principal" validate:"required,decimal_gt=0"`
	AnnualRate    decimal.Decimal `json:"annual_rate" validate:"decimal_gte=0"`
	TermMonths    int             `json:"term_months" validate:"required,gt=0,lte=600"`
}

// UpdateLoanTermsRequest replaces the terms of a loan that has not been
// disbursed yet.
type UpdateLoanTermsRequest struct {
	Principal  decimal.Decimal `json:"principal" validate:"required,decimal_gt=0"`
	AnnualRate decimal.Decimal `json:"annual_rate" validate:"decimal_gte=0"`
	TermMonths int             `json:"term_months" validate:"required,gt=0,lte=600"`
}

type LoanDecisionRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type DisburseLoanRequest struct {
	DisbursementDate string `json:"disbursement_date" validate:"omitempty,datetime=2006-01-02"`
}

type CreateLoanResponse struct {
	Loan     *Loan           `json:"loan"`
	Schedule []ScheduleEntry `json:"schedule"`
}

type OutstandingResponse struct {
	LoanID               uuid.UUID       `json:"loan_id"`
	Outstanding          decimal.Decimal `json:"outstanding"`
	InterestDue          decimal.Decimal `json:"interest_due"`
	PayoffAmount         decimal.Decimal `json:"payoff_amount"`
	CompletionPercentage decimal.Decimal `json:"completion_percentage"`
}

type OverdueResponse struct {
	LoanID              uuid.UUID       `json:"loan_id"`
	AsOf                time.Time       `json:"as_of"`
	CurrentInstallment  int             `json:"current_installment"`
	PaidInstallments    int             `json:"paid_installments"`
	OverdueInstallments int             `json:"overdue_installments"`
	OverdueAmount       decimal.Decimal `json:"overdue_amount"`
	DaysPastDue         int             `json:"days_past_due"`
	AccruedLateFee      decimal.Decimal `json:"accrued_late_fee"`
	IsDelinquent        bool            `json:"is_delinquent"`
}

type DelinquentResponse struct {
	LoanID              uuid.UUID `json:"loan_id"`
	IsDelinquent        bool      `json:"is_delinquent"`
	OverdueInstallments int       `json:"overdue_installments"`
}

// PortfolioMetrics aggregates loans for dashboards.
type PortfolioMetrics struct {
	AsOf                  time.Time       `json:"as_of"`
	TotalLoans            int             `json:"total_loans"`
	ActiveLoans           int             `json:"active_loans"`
	TotalPrincipal        decimal.Decimal `json:"total_principal"`
	TotalDisbursed        decimal.Decimal `json:"total_disbursed"`
	TotalOutstanding      decimal.Decimal `json:"total_outstanding"`
	CollectionEfficiency  decimal.Decimal `json:"collection_efficiency"`
	OverdueLoans          int             `json:"overdue_loans"`
	OverduePercentage     decimal.Decimal `json:"overdue_percentage"`
	OverdueAmount         decimal.Decimal `json:"overdue_amount"`
	PreviousOverdueAmount decimal.Decimal `json:"previous_overdue_amount"`
	AverageLoanSize       decimal.Decimal `json:"average_loan_size"`
}

// SweepReport summarizes one pass of the overdue job.
type SweepReport struct {
	AsOf       time.Time `json:"as_of"`
	Scanned    int       `json:"scanned"`
	Overdue    int       `json:"overdue"`
	Delinquent int       `json:"delinquent"`
	Defaulted  int       `json:"defaulted"`
	Notified   int       `json:"notified"`
}
