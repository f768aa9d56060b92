package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jordan-wright/email"
	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	email *email.Email
	addr  string
	auth  smtp.Auth
}

func newTestSender(cfg config.MailConfig, sendErr error) (*Sender, *[]captured) {
	var sent []captured
	s := NewSender(cfg, nil)
	s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		sent = append(sent, captured{email: e, addr: addr, auth: auth})
		return sendErr
	}
	return s, &sent
}

func mailConfig() config.MailConfig {
	return config.MailConfig{
		Enabled:      true,
		SMTPHost:     "smtp.example.com",
		SMTPPort:     "587",
		SMTPUsername: "mailer",
		SMTPPassword: "secret",
		From:         "loans@example.com",
	}
}

func testLoan() *domain.Loan {
	return &domain.Loan{
		ID:            uuid.New(),
		LoanNumber:    "LN2025000001",
		CustomerID:    "CUST-001",
		CustomerEmail: "borrower@example.com",
		LoanState: domain.LoanState{
			Status:             domain.LoanStatusActive,
			OutstandingBalance: decimal.RequireFromString("48500"),
		},
	}
}

func TestSender_PaymentReminder(t *testing.T) {
	s, sent := newTestSender(mailConfig(), nil)
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	err := s.PaymentReminder(context.Background(), testLoan(), due, decimal.RequireFromString("8884.9"))
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	msg := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", msg.addr)
	assert.NotNil(t, msg.auth)
	assert.Equal(t, "loans@example.com", msg.email.From)
	assert.Equal(t, []string{"borrower@example.com"}, msg.email.To)
	assert.Equal(t, "Upcoming Loan Installment Reminder", msg.email.Subject)
	assert.Contains(t, string(msg.email.Text), "8884.90")
	assert.Contains(t, string(msg.email.Text), "LN2025000001")
	assert.Contains(t, string(msg.email.Text), "2025-03-01")
}

func TestSender_OverdueNotice(t *testing.T) {
	s, sent := newTestSender(mailConfig(), nil)

	overdue := &domain.OverdueResponse{
		OverdueInstallments: 2,
		OverdueAmount:       decimal.RequireFromString("17769.76"),
		DaysPastDue:         45,
		AccruedLateFee:      decimal.RequireFromString("355.40"),
	}
	require.NoError(t, s.OverdueNotice(context.Background(), testLoan(), overdue))
	require.Len(t, *sent, 1)

	text := string((*sent)[0].email.Text)
	assert.Equal(t, "Overdue Loan Installment Notification", (*sent)[0].email.Subject)
	assert.Contains(t, text, "2 overdue installment(s)")
	assert.Contains(t, text, "17769.76")
	assert.Contains(t, text, "45 day(s)")
	assert.Contains(t, text, "355.40")
}

func TestSender_PaymentReceipt(t *testing.T) {
	s, sent := newTestSender(mailConfig(), nil)

	loan := testLoan()
	loan.Status = domain.LoanStatusClosed
	loan.OutstandingBalance = decimal.Zero
	payment := &domain.Payment{
		PaymentNumber:      "PAY2025030100001",
		Amount:             decimal.RequireFromString("2000"),
		InterestComponent:  decimal.RequireFromString("500"),
		PrincipalComponent: decimal.RequireFromString("1500"),
		PenaltyComponent:   decimal.Zero,
	}

	require.NoError(t, s.PaymentReceipt(context.Background(), loan, payment))
	require.Len(t, *sent, 1)

	text := string((*sent)[0].email.Text)
	assert.Contains(t, text, "PAY2025030100001")
	assert.Contains(t, text, "2000.00")
	assert.Contains(t, text, "fully repaid")
	assert.NotContains(t, text, "Late fee")
}

func TestSender_SkipsLoansWithoutEmail(t *testing.T) {
	s, sent := newTestSender(mailConfig(), nil)
	loan := testLoan()
	loan.CustomerEmail = ""

	require.NoError(t, s.PaymentReminder(context.Background(), loan, time.Now(), decimal.NewFromInt(1)))
	require.NoError(t, s.OverdueNotice(context.Background(), loan, &domain.OverdueResponse{}))
	require.NoError(t, s.PaymentReceipt(context.Background(), loan, &domain.Payment{}))
	assert.Empty(t, *sent)
}

func TestSender_NoAuthWithoutUsername(t *testing.T) {
	cfg := mailConfig()
	cfg.SMTPUsername = ""
	s, sent := newTestSender(cfg, nil)

	require.NoError(t, s.PaymentReminder(context.Background(), testLoan(), time.Now(), decimal.NewFromInt(1)))
	require.Len(t, *sent, 1)
	assert.Nil(t, (*sent)[0].auth)
}

func TestSender_SendFailure(t *testing.T) {
	boom := errors.New("connection refused")
	s, _ := newTestSender(mailConfig(), boom)

	err := s.PaymentReminder(context.Background(), testLoan(), time.Now(), decimal.NewFromInt(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNew(t *testing.T) {
	disabled := mailConfig()
	disabled.Enabled = false
	assert.IsType(t, Nop{}, New(disabled, nil))
	assert.IsType(t, &Sender{}, New(mailConfig(), nil))

	var n Notifier = Nop{}
	assert.NoError(t, n.PaymentReminder(context.Background(), testLoan(), time.Now(), decimal.Zero))
}
