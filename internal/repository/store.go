package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Store bundles the repositories over one connection pool and runs
// multi-table writes in a transaction.
type Store struct {
	db       *sqlx.DB
	Loans    LoanRepository
	Payments PaymentRepository
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:       db,
		Loans:    NewLoanRepository(db),
		Payments: NewPaymentRepository(db),
	}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) WithTx(ctx context.Context, fn func(loans LoanRepository, payments PaymentRepository) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(NewLoanRepository(tx), NewPaymentRepository(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// Connect opens and pings a database. SQLite connections get foreign keys
// enabled, and in-memory databases are pinned to a single connection so
// every query sees the same data.
func Connect(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres:
	case DriverSQLite:
		if !strings.Contains(dsn, "_foreign_keys") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_foreign_keys=on"
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	if driver == DriverSQLite && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates the schema for the connection's driver if it does not
// exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var statements []string
	switch db.DriverName() {
	case DriverPostgres:
		statements = postgresSchema
	case DriverSQLite:
		statements = sqliteSchema
	default:
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}
