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

const loanColumns = `id, loan_number, customer_id, customer_email, loan_type,
	principal, annual_rate, term_months,
	installment_amount, total_amount, total_interest, total_installments,
	outstanding_balance, principal_paid, interest_paid, penalty_paid, paid_installments, next_due_date, status,
	disbursed_amount, application_date, approval_date, disbursement_date, first_due_date, maturity_date, status_reason, closed_at,
	created_at, updated_at`

type loanRepository struct {
	db sqlx.ExtContext
}

func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES (:id, :loan_number, :customer_id, :customer_email, :loan_type,
			:principal, :annual_rate, :term_months,
			:installment_amount, :total_amount, :total_interest, :total_installments,
			:outstanding_balance, :principal_paid, :interest_paid, :penalty_paid, :paid_installments, :next_due_date, :status,
			:disbursed_amount, :application_date, :approval_date, :disbursement_date, :first_due_date, :maturity_date, :status_reason, :closed_at,
			:created_at, :updated_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.db, query, loan)
	return err
}

func (r *loanRepository) get(ctx context.Context, query string, arg any, key string) (*domain.Loan, error) {
	var loan domain.Loan
	err := sqlx.GetContext(ctx, r.db, &loan, r.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapLoanNotFound(key)
	}
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = ?`
	return r.get(ctx, query, id, id.String())
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = ?`
	if r.db.DriverName() == DriverPostgres {
		query += ` FOR UPDATE`
	}
	return r.get(ctx, query, id, id.String())
}

func (r *loanRepository) GetByLoanNumber(ctx context.Context, loanNumber string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_number = ?`
	return r.get(ctx, query, loanNumber, loanNumber)
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	loan.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE loans
		SET principal = :principal, annual_rate = :annual_rate, term_months = :term_months,
			installment_amount = :installment_amount, total_amount = :total_amount,
			total_interest = :total_interest, total_installments = :total_installments,
			outstanding_balance = :outstanding_balance, principal_paid = :principal_paid,
			interest_paid = :interest_paid, penalty_paid = :penalty_paid,
			paid_installments = :paid_installments, next_due_date = :next_due_date, status = :status,
			disbursed_amount = :disbursed_amount, approval_date = :approval_date,
			disbursement_date = :disbursement_date, first_due_date = :first_due_date,
			maturity_date = :maturity_date, status_reason = :status_reason,
			closed_at = :closed_at, updated_at = :updated_at
		WHERE id = :id
	`

	result, err := sqlx.NamedExecContext(ctx, r.db, query, loan)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return customError.WrapLoanNotFound(loan.ID.String())
	}

	return nil
}

func (r *loanRepository) ListByStatus(ctx context.Context, statuses ...domain.LoanStatus) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans`
	var args []any

	if len(statuses) > 0 {
		var err error
		query, args, err = sqlx.In(query+` WHERE status IN (?)`, statuses)
		if err != nil {
			return nil, err
		}
	}
	query += ` ORDER BY created_at, loan_number`

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, r.db, &loans, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM loans WHERE created_at >= ?`)
	if err := sqlx.GetContext(ctx, r.db, &count, query, since.UTC()); err != nil {
		return 0, err
	}

	return count, nil
}
