package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-ledger/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate is GetByID with a row lock where the driver supports one
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByLoanNumber retrieves a loan by its human-readable number
	GetByLoanNumber(ctx context.Context, loanNumber string) (*domain.Loan, error)

	// Update persists terms, ledger position and lifecycle fields
	Update(ctx context.Context, loan *domain.Loan) error

	// ListByStatus returns loans in any of the given statuses, or all loans
	ListByStatus(ctx context.Context, statuses ...domain.LoanStatus) ([]*domain.Loan, error)

	// CountCreatedSince counts loans created at or after since
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// Update persists status, components and reversal links
	Update(ctx context.Context, payment *domain.Payment) error

	// ListByLoanID retrieves all payments for a loan in ledger order
	ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// CountCreatedSince counts payments created at or after since
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

// Transactor runs fn with repositories bound to a single transaction.
// Returning an error from fn rolls everything back.
type Transactor interface {
	WithTx(ctx context.Context, fn func(loans LoanRepository, payments PaymentRepository) error) error
}
