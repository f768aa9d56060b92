package repository

// Money columns must round-trip exactly, sign included. Postgres keeps them
// as NUMERIC; SQLite has no exact decimal type, so they are stored as TEXT.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS loans (
		id UUID PRIMARY KEY,
		loan_number VARCHAR(32) NOT NULL UNIQUE,
		customer_id VARCHAR(64) NOT NULL,
		customer_email VARCHAR(254) NOT NULL DEFAULT '',
		loan_type VARCHAR(50) NOT NULL DEFAULT '',
		principal NUMERIC(18,2) NOT NULL,
		annual_rate NUMERIC NOT NULL,
		term_months INTEGER NOT NULL,
		installment_amount NUMERIC(18,2) NOT NULL,
		total_amount NUMERIC(18,2) NOT NULL,
		total_interest NUMERIC(18,2) NOT NULL,
		total_installments INTEGER NOT NULL,
		outstanding_balance NUMERIC(18,2) NOT NULL DEFAULT 0,
		principal_paid NUMERIC(18,2) NOT NULL DEFAULT 0,
		interest_paid NUMERIC(18,2) NOT NULL DEFAULT 0,
		penalty_paid NUMERIC(18,2) NOT NULL DEFAULT 0,
		paid_installments INTEGER NOT NULL DEFAULT 0,
		next_due_date DATE,
		status VARCHAR(20) NOT NULL,
		disbursed_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		application_date TIMESTAMPTZ NOT NULL,
		approval_date TIMESTAMPTZ,
		disbursement_date DATE,
		first_due_date DATE,
		maturity_date DATE,
		status_reason TEXT NOT NULL DEFAULT '',
		closed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_created_at ON loans(created_at)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		payment_number VARCHAR(64) NOT NULL UNIQUE,
		loan_id UUID NOT NULL REFERENCES loans(id),
		type VARCHAR(20) NOT NULL,
		method VARCHAR(20) NOT NULL DEFAULT '',
		reference VARCHAR(100) NOT NULL DEFAULT '',
		amount NUMERIC(18,2) NOT NULL,
		interest_component NUMERIC(18,2) NOT NULL,
		principal_component NUMERIC(18,2) NOT NULL,
		penalty_component NUMERIC(18,2) NOT NULL DEFAULT 0,
		payment_date TIMESTAMPTZ NOT NULL,
		due_date DATE,
		installment_index INTEGER,
		days_late INTEGER NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		reversal_of UUID REFERENCES payments(id),
		reversed_by UUID,
		reversal_reason TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		installment_advanced BOOLEAN NOT NULL DEFAULT FALSE,
		closed_loan BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_loan_id ON payments(loan_id, payment_date)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_created_at ON payments(created_at)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		loan_number TEXT NOT NULL UNIQUE,
		customer_id TEXT NOT NULL,
		customer_email TEXT NOT NULL DEFAULT '',
		loan_type TEXT NOT NULL DEFAULT '',
		principal TEXT NOT NULL,
		annual_rate TEXT NOT NULL,
		term_months INTEGER NOT NULL,
		installment_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		total_interest TEXT NOT NULL,
		total_installments INTEGER NOT NULL,
		outstanding_balance TEXT NOT NULL DEFAULT '0',
		principal_paid TEXT NOT NULL DEFAULT '0',
		interest_paid TEXT NOT NULL DEFAULT '0',
		penalty_paid TEXT NOT NULL DEFAULT '0',
		paid_installments INTEGER NOT NULL DEFAULT 0,
		next_due_date DATETIME,
		status TEXT NOT NULL,
		disbursed_amount TEXT NOT NULL DEFAULT '0',
		application_date DATETIME NOT NULL,
		approval_date DATETIME,
		disbursement_date DATETIME,
		first_due_date DATETIME,
		maturity_date DATETIME,
		status_reason TEXT NOT NULL DEFAULT '',
		closed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		payment_number TEXT NOT NULL UNIQUE,
		loan_id TEXT NOT NULL REFERENCES loans(id),
		type TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		interest_component TEXT NOT NULL,
		principal_component TEXT NOT NULL,
		penalty_component TEXT NOT NULL DEFAULT '0',
		payment_date DATETIME NOT NULL,
		due_date DATETIME,
		installment_index INTEGER,
		days_late INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		reversal_of TEXT REFERENCES payments(id),
		reversed_by TEXT,
		reversal_reason TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		installment_advanced BOOLEAN NOT NULL DEFAULT 0,
		closed_loan BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_loan_id ON payments(loan_id, payment_date)`,
}
