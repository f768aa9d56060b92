package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/loan-ledger/internal/allocator"
	"github.com/segyhp/loan-ledger/internal/cache"
	"github.com/segyhp/loan-ledger/internal/calculator"
	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/ledger"
	"github.com/segyhp/loan-ledger/internal/notify"
	"github.com/segyhp/loan-ledger/internal/overdue"
	"github.com/segyhp/loan-ledger/internal/repository"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/money"
	"github.com/segyhp/loan-ledger/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultLoanType = "personal"

// Clock supplies "now". Tests pin it; production uses time.Now.
type Clock func() time.Time

// Options are the business rules the service applies.
type Options struct {
	Epsilon              decimal.Decimal
	LatePolicy           overdue.LatePolicy
	FirstDueOffsetDays   int
	DelinquencyThreshold int
	DefaultAfterDays     int
	ReminderLeadDays     int
}

func DefaultOptions() Options {
	return Options{
		Epsilon:              decimal.RequireFromString("0.01"),
		LatePolicy:           overdue.DefaultLatePolicy(),
		FirstDueOffsetDays:   ledger.DefaultFirstDueOffsetDays,
		DelinquencyThreshold: 2,
		ReminderLeadDays:     3,
	}
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Epsilon: cfg.GetCloseEpsilon(),
		LatePolicy: overdue.LatePolicy{
			MonthlyRate:  cfg.GetLateFeeMonthlyRate(),
			DaysPerMonth: cfg.Business.LateFeeDaysPerMonth,
		},
		FirstDueOffsetDays:   cfg.Business.FirstDueOffsetDays,
		DelinquencyThreshold: cfg.Business.DelinquencyThreshold,
		DefaultAfterDays:     cfg.Business.DefaultAfterDays,
		ReminderLeadDays:     cfg.Business.ReminderLeadDays,
	}
}

// Dependencies wires the service. Schedules, Locker, Notifier, Clock and
// Logger are optional.
type Dependencies struct {
	Loans     repository.LoanRepository
	Payments  repository.PaymentRepository
	Tx        repository.Transactor
	Schedules cache.ScheduleCache
	Locker    ledger.Locker
	Notifier  notify.Notifier
	Clock     Clock
	Logger    *zap.Logger
}

// LoanService runs every loan and payment use case. Writes to one loan are
// serialized through the Locker and persisted in a single transaction.
type LoanService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	tx          repository.Transactor
	schedules   cache.ScheduleCache
	locker      ledger.Locker
	ledger      *ledger.Ledger
	allocator   *allocator.Allocator
	notifier    notify.Notifier
	opts        Options
	clock       Clock
	logger      *zap.Logger
}

func NewLoanService(deps Dependencies, opts Options) *LoanService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Schedules == nil {
		deps.Schedules = cache.NewMemoryScheduleCache()
	}
	if deps.Locker == nil {
		deps.Locker = ledger.NewKeyedMutex()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &LoanService{
		LoanRepo:    deps.Loans,
		PaymentRepo: deps.Payments,
		tx:          deps.Tx,
		schedules:   deps.Schedules,
		locker:      deps.Locker,
		ledger:      ledger.New(opts.Epsilon, deps.Logger),
		allocator:   allocator.New(opts.Epsilon),
		notifier:    deps.Notifier,
		opts:        opts,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
}

func (s *LoanService) now() time.Time {
	return s.clock().UTC()
}

// dbError keeps business errors as they are and wraps everything else.
func dbError(err error) error {
	if _, ok := customError.AsBusinessError(err); ok {
		return err
	}
	return customError.WrapDatabaseError(err)
}

func (s *LoanService) inTx(ctx context.Context, fn func(loans repository.LoanRepository, payments repository.PaymentRepository) error) error {
	if err := s.tx.WithTx(ctx, fn); err != nil {
		return dbError(err)
	}
	return nil
}

func (s *LoanService) withLoanLocked(ctx context.Context, loanID uuid.UUID, fn func(loans repository.LoanRepository, payments repository.PaymentRepository) error) error {
	unlock, err := s.locker.Lock(ctx, loanID)
	if err != nil {
		return err
	}
	defer unlock()

	return s.inTx(ctx, fn)
}

// mutateLoan loads the loan under lock, applies fn and persists the result.
func (s *LoanService) mutateLoan(ctx context.Context, loanID uuid.UUID, fn func(loan *domain.Loan) error) (*domain.Loan, error) {
	var result *domain.Loan
	err := s.withLoanLocked(ctx, loanID, func(loans repository.LoanRepository, _ repository.PaymentRepository) error {
		loan, err := loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if err := fn(loan); err != nil {
			return err
		}
		if err := loans.Update(ctx, loan); err != nil {
			return err
		}
		result = loan
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func nextLoanNumber(ctx context.Context, loans repository.LoanRepository, now time.Time) (string, error) {
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	n, err := loans.CountCreatedSince(ctx, yearStart)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("LN%d%06d", now.Year(), n+1), nil
}

func nextPaymentNumber(ctx context.Context, payments repository.PaymentRepository, now time.Time) (string, error) {
	n, err := payments.CountCreatedSince(ctx, utils.DateOnly(now))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PAY%s%05d", now.Format("20060102"), n+1), nil
}

// CreateLoan prices the requested terms and records a pending application.
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	principal := money.Round(request.Principal)
	totals, err := calculator.ComputeTotals(principal, request.AnnualRate, request.TermMonths)
	if err != nil {
		return nil, err
	}

	loanType := request.LoanType
	if loanType == "" {
		loanType = defaultLoanType
	}

	now := s.now()
	loan := &domain.Loan{
		ID:            uuid.New(),
		CustomerID:    request.CustomerID,
		CustomerEmail: request.CustomerEmail,
		LoanType:      loanType,
		LoanTerms: domain.LoanTerms{
			Principal:  principal,
			AnnualRate: request.AnnualRate,
			TermMonths: request.TermMonths,
		},
		InstallmentAmount: totals.Installment,
		TotalAmount:       totals.TotalAmount,
		TotalInterest:     totals.TotalInterest,
		TotalInstallments: request.TermMonths,
		LoanState: domain.LoanState{
			OutstandingBalance: decimal.Zero,
			PrincipalPaid:      decimal.Zero,
			InterestPaid:       decimal.Zero,
			PenaltyPaid:        decimal.Zero,
			Status:             domain.LoanStatusPending,
		},
		DisbursedAmount: decimal.Zero,
		ApplicationDate: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.inTx(ctx, func(loans repository.LoanRepository, _ repository.PaymentRepository) error {
		number, err := nextLoanNumber(ctx, loans, now)
		if err != nil {
			return err
		}
		loan.LoanNumber = number
		return loans.Create(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	schedule, err := calculator.GenerateSchedule(loan.Principal, loan.AnnualRate, loan.TermMonths, s.scheduleStart(loan))
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan created",
		zap.String("loan_id", loan.ID.String()),
		zap.String("loan_number", loan.LoanNumber),
		zap.String("principal", loan.Principal.String()),
		zap.String("installment", loan.InstallmentAmount.String()),
	)

	return &domain.CreateLoanResponse{Loan: loan, Schedule: schedule}, nil
}

// UpdateTerms reprices a loan that has not been disbursed.
func (s *LoanService) UpdateTerms(ctx context.Context, loanID uuid.UUID, request *domain.UpdateLoanTermsRequest) (*domain.Loan, error) {
	principal := money.Round(request.Principal)
	totals, err := calculator.ComputeTotals(principal, request.AnnualRate, request.TermMonths)
	if err != nil {
		return nil, err
	}

	loan, err := s.mutateLoan(ctx, loanID, func(loan *domain.Loan) error {
		if loan.Status != domain.LoanStatusPending && loan.Status != domain.LoanStatusApproved {
			return customError.WrapInvalidLoanTerms(
				fmt.Sprintf("terms of a %s loan can no longer change", loan.Status))
		}
		loan.LoanTerms = domain.LoanTerms{
			Principal:  principal,
			AnnualRate: request.AnnualRate,
			TermMonths: request.TermMonths,
		}
		loan.InstallmentAmount = totals.Installment
		loan.TotalAmount = totals.TotalAmount
		loan.TotalInterest = totals.TotalInterest
		loan.TotalInstallments = request.TermMonths
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.schedules.Invalidate(ctx, loanID); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.String("loan_id", loanID.String()), zap.Error(err))
	}
	return loan, nil
}

func (s *LoanService) ApproveLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.mutateLoan(ctx, loanID, func(loan *domain.Loan) error {
		return s.ledger.Approve(loan, s.now())
	})
}

func (s *LoanService) RejectLoan(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	return s.mutateLoan(ctx, loanID, func(loan *domain.Loan) error {
		return s.ledger.Reject(loan, reason, s.now())
	})
}

// DisburseLoan activates an approved loan. Without a date the disbursement
// happens today.
func (s *LoanService) DisburseLoan(ctx context.Context, loanID uuid.UUID, request *domain.DisburseLoanRequest) (*domain.Loan, error) {
	at := s.now()
	if request != nil && request.DisbursementDate != "" {
		parsed, err := time.Parse("2006-01-02", request.DisbursementDate)
		if err != nil {
			return nil, customError.WrapValidationError(err)
		}
		at = parsed
	}

	loan, err := s.mutateLoan(ctx, loanID, func(loan *domain.Loan) error {
		return s.ledger.Disburse(loan, at, s.opts.FirstDueOffsetDays)
	})
	if err != nil {
		return nil, err
	}

	if err := s.schedules.Invalidate(ctx, loanID); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.String("loan_id", loanID.String()), zap.Error(err))
	}
	return loan, nil
}

func (s *LoanService) MarkDefaulted(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	return s.mutateLoan(ctx, loanID, func(loan *domain.Loan) error {
		return s.ledger.MarkDefaulted(loan, reason)
	})
}

func (s *LoanService) ForceClose(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	return s.mutateLoan(ctx, loanID, func(loan *domain.Loan) error {
		return s.ledger.ForceClose(loan, reason, s.now())
	})
}

func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, dbError(err)
	}
	return loan, nil
}

// GetOutstanding reports the principal still owed and what it takes to
// settle the loan today.
func (s *LoanService) GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return &domain.OutstandingResponse{
		LoanID:       loan.ID,
		Outstanding:  loan.OutstandingBalance,
		InterestDue:  allocator.InterestDue(loan.OutstandingBalance, loan.AnnualRate),
		PayoffAmount: allocator.PayoffAmount(loan),

		CompletionPercentage: loan.CompletionPercentage(),
	}, nil
}

// scheduleStart is the first due date, or where it would fall if the loan
// were disbursed today.
func (s *LoanService) scheduleStart(loan *domain.Loan) time.Time {
	if loan.FirstDueDate != nil {
		return *loan.FirstDueDate
	}
	offset := s.opts.FirstDueOffsetDays
	if offset < 0 {
		offset = ledger.DefaultFirstDueOffsetDays
	}
	return utils.DateOnly(s.now()).AddDate(0, 0, offset)
}

// GetSchedule returns the amortization table. Schedules of disbursed loans
// are fixed and cached; earlier ones are projected from today.
func (s *LoanService) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	cached, found, err := s.schedules.GetSchedule(ctx, loanID)
	if err != nil {
		s.logger.Warn("schedule cache unavailable", zap.String("loan_id", loanID.String()), zap.Error(err))
	} else if found {
		return cached, nil
	}

	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	entries, err := calculator.GenerateSchedule(loan.Principal, loan.AnnualRate, loan.TermMonths, s.scheduleStart(loan))
	if err != nil {
		return nil, err
	}

	schedule := &domain.ScheduleResponse{
		LoanID:        loan.ID,
		Installment:   loan.InstallmentAmount,
		TotalAmount:   loan.TotalAmount,
		TotalInterest: calculator.TotalInterest(entries),
		Schedule:      entries,
	}

	if loan.FirstDueDate != nil {
		if err := s.schedules.SetSchedule(ctx, schedule); err != nil {
			s.logger.Warn("failed to cache schedule", zap.String("loan_id", loanID.String()), zap.Error(err))
		}
	}

	return schedule, nil
}

// PrepaymentQuote compares the current schedule with one after a lump-sum
// prepayment. Without AfterPeriod the prepayment follows the installments
// already paid.
func (s *LoanService) PrepaymentQuote(ctx context.Context, loanID uuid.UUID, request *domain.PrepaymentQuoteRequest) (*domain.PrepaymentReport, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	afterPeriod := loan.PaidInstallments
	if request.AfterPeriod != nil {
		afterPeriod = *request.AfterPeriod
	}

	return calculator.PrepaymentSavings(loan.Terms(), s.scheduleStart(loan), request.Amount, afterPeriod, request.Mode)
}

func (s *LoanService) GetOverdue(ctx context.Context, loanID uuid.UUID) (*domain.OverdueResponse, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return overdue.Assess(loan, s.now(), s.opts.LatePolicy, s.opts.DelinquencyThreshold), nil
}

// IsDelinquent checks whether the borrower has missed at least the
// configured number of installments.
func (s *LoanService) IsDelinquent(ctx context.Context, loanID uuid.UUID) (*domain.DelinquentResponse, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	today := s.now()
	return &domain.DelinquentResponse{
		LoanID:              loan.ID,
		IsDelinquent:        overdue.IsDelinquent(loan, today, s.opts.DelinquencyThreshold),
		OverdueInstallments: overdue.OverdueInstallments(loan, today),
	}, nil
}
