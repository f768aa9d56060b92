package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"

	"github.com/jmoiron/sqlx"
)

const paymentColumns = `id, payment_number, loan_id, type, method, reference,
	amount, interest_component, principal_component, penalty_component,
	payment_date, due_date, installment_index, days_late,
	status, reversal_of, reversed_by, reversal_reason, failure_reason,
	installment_advanced, closed_loan, created_at, updated_at`

type paymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (:id, :payment_number, :loan_id, :type, :method, :reference,
			:amount, :interest_component, :principal_component, :penalty_component,
			:payment_date, :due_date, :installment_index, :days_late,
			:status, :reversal_of, :reversed_by, :reversal_reason, :failure_reason,
			:installment_advanced, :closed_loan, :created_at, :updated_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, payment)
	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := r.db.Rebind(`SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`)

	var payment domain.Payment
	err := sqlx.GetContext(ctx, r.db, &payment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapPaymentNotFound(id.String())
	}
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

// Update never rewrites the identity, loan or date of a ledger entry.
func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	payment.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE payments
		SET amount = :amount, interest_component = :interest_component,
			principal_component = :principal_component, penalty_component = :penalty_component,
			status = :status, reversed_by = :reversed_by, reversal_reason = :reversal_reason,
			failure_reason = :failure_reason, installment_advanced = :installment_advanced,
			closed_loan = :closed_loan, updated_at = :updated_at
		WHERE id = :id
	`

	result, err := sqlx.NamedExecContext(ctx, r.db, query, payment)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return customError.WrapPaymentNotFound(payment.ID.String())
	}

	return nil
}

func (r *paymentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	query := r.db.Rebind(`
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_id = ?
		ORDER BY payment_date, created_at
	`)

	var payments []*domain.Payment
	if err := sqlx.SelectContext(ctx, r.db, &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM payments WHERE created_at >= ?`)
	if err := sqlx.GetContext(ctx, r.db, &count, query, since.UTC()); err != nil {
		return 0, err
	}

	return count, nil
}
