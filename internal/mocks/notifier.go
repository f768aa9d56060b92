package mocks

import (
	"context"
	"time"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PaymentReminder(ctx context.Context, loan *domain.Loan, dueDate time.Time, amount decimal.Decimal) error {
	args := m.Called(ctx, loan, dueDate, amount)
	return args.Error(0)
}

func (m *MockNotifier) OverdueNotice(ctx context.Context, loan *domain.Loan, overdue *domain.OverdueResponse) error {
	args := m.Called(ctx, loan, overdue)
	return args.Error(0)
}

func (m *MockNotifier) PaymentReceipt(ctx context.Context, loan *domain.Loan, payment *domain.Payment) error {
	args := m.Called(ctx, loan, payment)
	return args.Error(0)
}
