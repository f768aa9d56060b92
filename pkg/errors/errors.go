package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound              = errors.New("loan not found")
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrInvalidLoanTerms          = errors.New("invalid loan terms")
	ErrInvalidPaymentAmount      = errors.New("invalid payment amount")
	ErrLoanNotActive             = errors.New("loan is not active")
	ErrPaymentExceedsOutstanding = errors.New("payment exceeds outstanding balance")
	ErrAlreadyReversed           = errors.New("payment is already reversed")
	ErrNotCompleted              = errors.New("only completed payments can be reversed")
	ErrReversalNotReversible     = errors.New("a reversal entry cannot itself be reversed")
	ErrPaymentNotPending         = errors.New("payment is not pending")
	ErrInstallmentOutOfOrder     = errors.New("installment index out of order")
	ErrInvalidTransition         = errors.New("invalid loan status transition")
	ErrPaymentLoanMismatch       = errors.New("payment does not belong to loan")
	ErrLockUnavailable           = errors.New("loan is locked by another operation")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound              = "LOAN_NOT_FOUND"
	ErrCodePaymentNotFound           = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidLoanTerms          = "INVALID_LOAN_TERMS"
	ErrCodeInvalidPaymentAmount      = "INVALID_PAYMENT_AMOUNT"
	ErrCodeLoanNotActive             = "LOAN_NOT_ACTIVE"
	ErrCodePaymentExceedsOutstanding = "PAYMENT_EXCEEDS_OUTSTANDING"
	ErrCodeAlreadyReversed           = "ALREADY_REVERSED"
	ErrCodeNotCompleted              = "NOT_COMPLETED"
	ErrCodeReversalNotReversible     = "REVERSAL_NOT_REVERSIBLE"
	ErrCodePaymentNotPending         = "PAYMENT_NOT_PENDING"
	ErrCodeInstallmentOutOfOrder     = "INSTALLMENT_OUT_OF_ORDER"
	ErrCodeInvalidTransition         = "INVALID_TRANSITION"
	ErrCodePaymentLoanMismatch       = "PAYMENT_LOAN_MISMATCH"
	ErrCodeLockUnavailable           = "LOCK_UNAVAILABLE"
	ErrCodeValidation                = "VALIDATION_ERROR"
	ErrCodeDatabaseError             = "DATABASE_ERROR"
	ErrCodeCacheError                = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment with ID %s not found", paymentID),
		ErrPaymentNotFound,
	)
}

func WrapInvalidLoanTerms(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanTerms,
		reason,
		ErrInvalidLoanTerms,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapLoanNotActive(loanID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotActive,
		fmt.Sprintf("Loan %s is %s, payments require an active loan", loanID, status),
		ErrLoanNotActive,
	)
}

// WrapPaymentExceedsOutstanding reports an overpayment together with the
// largest amount the loan would currently accept.
func WrapPaymentExceedsOutstanding(amount, payoff string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentExceedsOutstanding,
		fmt.Sprintf("Payment amount %s exceeds the payoff amount %s", amount, payoff),
		ErrPaymentExceedsOutstanding,
	)
}

func WrapAlreadyReversed(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyReversed,
		fmt.Sprintf("Payment %s is already reversed", paymentID),
		ErrAlreadyReversed,
	)
}

func WrapNotCompleted(paymentID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotCompleted,
		fmt.Sprintf("Payment %s is %s, only completed payments can be reversed", paymentID, status),
		ErrNotCompleted,
	)
}

func WrapReversalNotReversible(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeReversalNotReversible,
		fmt.Sprintf("Payment %s is a reversal entry", paymentID),
		ErrReversalNotReversible,
	)
}

func WrapPaymentNotPending(paymentID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotPending,
		fmt.Sprintf("Payment %s is %s, expected pending", paymentID, status),
		ErrPaymentNotPending,
	)
}

func WrapInstallmentOutOfOrder(index, paid int) *BusinessError {
	return NewBusinessError(
		ErrCodeInstallmentOutOfOrder,
		fmt.Sprintf("Installment %d cannot be applied when %d installments are paid", index, paid),
		ErrInstallmentOutOfOrder,
	)
}

func WrapInvalidTransition(from, to string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTransition,
		fmt.Sprintf("Loan cannot move from %s to %s", from, to),
		ErrInvalidTransition,
	)
}

func WrapPaymentLoanMismatch(paymentID, loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentLoanMismatch,
		fmt.Sprintf("Payment %s does not belong to loan %s", paymentID, loanID),
		ErrPaymentLoanMismatch,
	)
}

func WrapLockUnavailable(loanID string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeLockUnavailable,
		fmt.Sprintf("Loan %s is busy, retry later", loanID),
		errors.Join(ErrLockUnavailable, err),
	)
}

func WrapValidationError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		"request validation failed",
		err,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// Code extracts the business code from err, or "" when err carries none.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// AsBusinessError unwraps err to its BusinessError, if any.
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
