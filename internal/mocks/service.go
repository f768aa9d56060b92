package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockLoanService struct {
	mock.Mock
}

// NewMockLoanService creates a new mock loan service instance
func NewMockLoanService() *MockLoanService {
	return &MockLoanService{}
}

func (m *MockLoanService) loan(args mock.Arguments) (*domain.Loan, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) payment(args mock.Arguments) (*domain.Payment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockLoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateLoanResponse), args.Error(1)
}

func (m *MockLoanService) UpdateTerms(ctx context.Context, loanID uuid.UUID, request *domain.UpdateLoanTermsRequest) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID, request))
}

func (m *MockLoanService) ApproveLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID))
}

func (m *MockLoanService) RejectLoan(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID, reason))
}

func (m *MockLoanService) DisburseLoan(ctx context.Context, loanID uuid.UUID, request *domain.DisburseLoanRequest) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID, request))
}

func (m *MockLoanService) MarkDefaulted(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID, reason))
}

func (m *MockLoanService) ForceClose(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID, reason))
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return m.loan(m.Called(ctx, loanID))
}

func (m *MockLoanService) GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OutstandingResponse), args.Error(1)
}

func (m *MockLoanService) GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduleResponse), args.Error(1)
}

func (m *MockLoanService) PrepaymentQuote(ctx context.Context, loanID uuid.UUID, request *domain.PrepaymentQuoteRequest) (*domain.PrepaymentReport, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrepaymentReport), args.Error(1)
}

func (m *MockLoanService) GetOverdue(ctx context.Context, loanID uuid.UUID) (*domain.OverdueResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OverdueResponse), args.Error(1)
}

func (m *MockLoanService) IsDelinquent(ctx context.Context, loanID uuid.UUID) (*domain.DelinquentResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DelinquentResponse), args.Error(1)
}

func (m *MockLoanService) PreviewPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*domain.Allocation, error) {
	args := m.Called(ctx, loanID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Allocation), args.Error(1)
}

func (m *MockLoanService) MakePayment(ctx context.Context, loanID uuid.UUID, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MakePaymentResponse), args.Error(1)
}

func (m *MockLoanService) SubmitPayment(ctx context.Context, loanID uuid.UUID, request *domain.MakePaymentRequest) (*domain.Payment, error) {
	return m.payment(m.Called(ctx, loanID, request))
}

func (m *MockLoanService) ConfirmPayment(ctx context.Context, paymentID uuid.UUID) (*domain.MakePaymentResponse, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MakePaymentResponse), args.Error(1)
}

func (m *MockLoanService) FailPayment(ctx context.Context, paymentID uuid.UUID, reason string) (*domain.Payment, error) {
	return m.payment(m.Called(ctx, paymentID, reason))
}

func (m *MockLoanService) CancelPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	return m.payment(m.Called(ctx, paymentID))
}

func (m *MockLoanService) ReversePayment(ctx context.Context, paymentID uuid.UUID, reason string) (*domain.ReversePaymentResponse, error) {
	args := m.Called(ctx, paymentID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReversePaymentResponse), args.Error(1)
}

func (m *MockLoanService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	return m.payment(m.Called(ctx, paymentID))
}

func (m *MockLoanService) ListPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockLoanService) PortfolioMetrics(ctx context.Context) (*domain.PortfolioMetrics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PortfolioMetrics), args.Error(1)
}
