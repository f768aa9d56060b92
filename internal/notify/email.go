// Package notify tells borrowers about upcoming and missed installments.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/pkg/money"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier delivers borrower-facing messages. Implementations skip loans
// without a contact address.
type Notifier interface {
	PaymentReminder(ctx context.Context, loan *domain.Loan, dueDate time.Time, amount decimal.Decimal) error
	OverdueNotice(ctx context.Context, loan *domain.Loan, overdue *domain.OverdueResponse) error
	PaymentReceipt(ctx context.Context, loan *domain.Loan, payment *domain.Payment) error
}

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    config.MailConfig
	logger *zap.Logger
	send   sendFunc
}

// NewSender creates a new email sender
func NewSender(cfg config.MailConfig, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (s *Sender) deliver(to, subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := s.send(e, addr, auth); err != nil {
		s.logger.Error("failed to send email",
			zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func greeting(loan *domain.Loan) string {
	return fmt.Sprintf("Dear customer %s,\n\n", loan.CustomerID)
}

const signature = "\nBest regards,\nLoan Servicing"

// PaymentReminder announces the installment due on dueDate.
func (s *Sender) PaymentReminder(_ context.Context, loan *domain.Loan, dueDate time.Time, amount decimal.Decimal) error {
	if loan.CustomerEmail == "" {
		return nil
	}

	var body strings.Builder
	body.WriteString(greeting(loan))
	fmt.Fprintf(&body,
		"This is a reminder that the installment of %s on loan %s is due on %s.\n"+
			"Please ensure sufficient funds are available.\n",
		money.Format(amount), loan.LoanNumber, dueDate.Format("2006-01-02"))
	body.WriteString(signature)

	return s.deliver(loan.CustomerEmail, "Upcoming Loan Installment Reminder", body.String())
}

// OverdueNotice reports missed installments and the late fee accrued so far.
func (s *Sender) OverdueNotice(_ context.Context, loan *domain.Loan, overdue *domain.OverdueResponse) error {
	if loan.CustomerEmail == "" {
		return nil
	}

	var body strings.Builder
	body.WriteString(greeting(loan))
	fmt.Fprintf(&body,
		"Loan %s has %d overdue installment(s) totalling %s, %d day(s) past due.\n",
		loan.LoanNumber, overdue.OverdueInstallments, money.Format(overdue.OverdueAmount), overdue.DaysPastDue)
	if overdue.AccruedLateFee.IsPositive() {
		fmt.Fprintf(&body, "A late fee of %s has accrued.\n", money.Format(overdue.AccruedLateFee))
	}
	body.WriteString("Please make the payment as soon as possible to avoid further fees.\n")
	body.WriteString(signature)

	return s.deliver(loan.CustomerEmail, "Overdue Loan Installment Notification", body.String())
}

// PaymentReceipt confirms a completed payment.
func (s *Sender) PaymentReceipt(_ context.Context, loan *domain.Loan, payment *domain.Payment) error {
	if loan.CustomerEmail == "" {
		return nil
	}

	var body strings.Builder
	body.WriteString(greeting(loan))
	fmt.Fprintf(&body,
		"We received payment %s of %s on loan %s.\n"+
			"Interest: %s\nPrincipal: %s\n",
		payment.PaymentNumber, money.Format(payment.Total()), loan.LoanNumber,
		money.Format(payment.InterestComponent), money.Format(payment.PrincipalComponent))
	if payment.PenaltyComponent.IsPositive() {
		fmt.Fprintf(&body, "Late fee: %s\n", money.Format(payment.PenaltyComponent))
	}
	fmt.Fprintf(&body, "Outstanding balance: %s\n", money.Format(loan.OutstandingBalance))
	if loan.Status == domain.LoanStatusClosed {
		body.WriteString("Your loan is now fully repaid and closed.\n")
	}
	body.WriteString(signature)

	return s.deliver(loan.CustomerEmail, "Loan Payment Receipt", body.String())
}

// Nop discards every message. Used when mail is disabled.
type Nop struct{}

func (Nop) PaymentReminder(context.Context, *domain.Loan, time.Time, decimal.Decimal) error {
	return nil
}

func (Nop) OverdueNotice(context.Context, *domain.Loan, *domain.OverdueResponse) error {
	return nil
}

func (Nop) PaymentReceipt(context.Context, *domain.Loan, *domain.Payment) error {
	return nil
}

// New returns an SMTP sender when mail is enabled and Nop otherwise.
func New(cfg config.MailConfig, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return Nop{}
	}
	return NewSender(cfg, logger)
}
