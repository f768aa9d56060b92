package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusReversed  PaymentStatus = "reversed"
)

type PaymentType string

const (
	PaymentTypeEMI        PaymentType = "emi"
	PaymentTypePrepayment PaymentType = "prepayment"
	PaymentTypePenalty    PaymentType = "penalty"
	PaymentTypeClosure    PaymentType = "closure"
	PaymentTypeReversal   PaymentType = "reversal"
)

// Payment is a ledger entry. Once completed it is never edited except to be
// marked reversed; a reversal is a new Payment with negated components.
//
// Amount always equals InterestComponent + PrincipalComponent. The penalty is
// collected on top of Amount.
type Payment struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	PaymentNumber string      `json:"payment_number" db:"payment_number"`
	LoanID        uuid.UUID   `json:"loan_id" db:"loan_id"`
	Type          PaymentType `json:"type" db:"type"`
	Method        string      `json:"method" db:"method"`
	Reference     string      `json:"reference,omitempty" db:"reference"`

	Amount             decimal.Decimal `json:"amount" db:"amount"`
	InterestComponent  decimal.Decimal `json:"interest_component" db:"interest_component"`
	PrincipalComponent decimal.Decimal `json:"principal_component" db:"principal_component"`
	PenaltyComponent   decimal.Decimal `json:"penalty_component" db:"penalty_component"`

	PaymentDate      time.Time  `json:"payment_date" db:"payment_date"`
	DueDate          *time.Time `json:"due_date,omitempty" db:"due_date"`
	InstallmentIndex *int       `json:"installment_index,omitempty" db:"installment_index"`
	DaysLate         int        `json:"days_late" db:"days_late"`

	Status         PaymentStatus `json:"status" db:"status"`
	ReversalOf     *uuid.UUID    `json:"reversal_of,omitempty" db:"reversal_of"`
	ReversedBy     *uuid.UUID    `json:"reversed_by,omitempty" db:"reversed_by"`
	ReversalReason string        `json:"reversal_reason,omitempty" db:"reversal_reason"`
	FailureReason  string        `json:"failure_reason,omitempty" db:"failure_reason"`

	// Effects recorded at apply time so a reversal can undo them exactly.
	InstallmentAdvanced bool `json:"installment_advanced" db:"installment_advanced"`
	ClosedLoan          bool `json:"closed_loan" db:"closed_loan"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Total is the cash collected by this entry, penalty included.
func (p *Payment) Total() decimal.Decimal {
	return p.Amount.Add(p.PenaltyComponent)
}

// IsReversal reports whether p offsets another payment.
func (p *Payment) IsReversal() bool {
	return p.Type == PaymentTypeReversal || p.ReversalOf != nil
}

// IsLate reports whether an installment payment was made after its due date.
func (p *Payment) IsLate() bool {
	return p.DueDate != nil && p.PaymentDate.After(*p.DueDate)
}

// Allocation is the interest-first split of a payment amount.
type Allocation struct {
	Amount             decimal.Decimal `json:"amount"`
	InterestDue        decimal.Decimal `json:"interest_due"`
	InterestComponent  decimal.Decimal `json:"interest_component"`
	PrincipalComponent decimal.Decimal `json:"principal_component"`
	RemainingBalance   decimal.Decimal `json:"remaining_balance"`
}

type MakePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,decimal_gt=0"`
	Type        PaymentType     `json:"type" validate:"omitempty,oneof=emi prepayment penalty closure"`
	Method      string          `json:"method" validate:"required,oneof=cash cheque bank_transfer upi card"`
	Reference   string          `json:"reference" validate:"omitempty,max=100"`
	PaymentDate string          `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
}

type PreviewPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,decimal_gt=0"`
}

type ReversePaymentRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type FailPaymentRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type ReversePaymentResponse struct {
	Original *Payment `json:"original"`
	Reversal *Payment `json:"reversal"`
	Loan     *Loan    `json:"loan"`
}

type MakePaymentResponse struct {
	Payment *Payment `json:"payment"`
	Loan    *Loan    `json:"loan"`
}
