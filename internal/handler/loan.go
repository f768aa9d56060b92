package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/segyhp/loan-ledger/internal/domain"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/segyhp/loan-ledger/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoanService is the set of ledger operations exposed over HTTP.
type LoanService interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error)
	UpdateTerms(ctx context.Context, loanID uuid.UUID, request *domain.UpdateLoanTermsRequest) (*domain.Loan, error)
	ApproveLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	RejectLoan(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error)
	DisburseLoan(ctx context.Context, loanID uuid.UUID, request *domain.DisburseLoanRequest) (*domain.Loan, error)
	MarkDefaulted(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error)
	ForceClose(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, error)
	GetSchedule(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleResponse, error)
	PrepaymentQuote(ctx context.Context, loanID uuid.UUID, request *domain.PrepaymentQuoteRequest) (*domain.PrepaymentReport, error)
	GetOverdue(ctx context.Context, loanID uuid.UUID) (*domain.OverdueResponse, error)
	IsDelinquent(ctx context.Context, loanID uuid.UUID) (*domain.DelinquentResponse, error)

	PreviewPayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*domain.Allocation, error)
	MakePayment(ctx context.Context, loanID uuid.UUID, request *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error)
	SubmitPayment(ctx context.Context, loanID uuid.UUID, request *domain.MakePaymentRequest) (*domain.Payment, error)
	ConfirmPayment(ctx context.Context, paymentID uuid.UUID) (*domain.MakePaymentResponse, error)
	FailPayment(ctx context.Context, paymentID uuid.UUID, reason string) (*domain.Payment, error)
	CancelPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	ReversePayment(ctx context.Context, paymentID uuid.UUID, reason string) (*domain.ReversePaymentResponse, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	ListPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	PortfolioMetrics(ctx context.Context) (*domain.PortfolioMetrics, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLoanHandler(service LoanService, logger *zap.Logger) *LoanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanHandler{
		service:   service,
		validator: newValidator(),
		logger:    logger,
	}
}

func pathID(r *http.Request, key string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[key])
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted when optional is set, leaving dst at its zero value.
func (h *LoanHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			response.BadRequest(w, "Invalid request body", err)
			return false
		}
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", customError.WrapValidationError(err))
		return false
	}
	return true
}

func (h *LoanHandler) loanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := pathID(r, "loanId")
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *LoanHandler) paymentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := pathID(r, "paymentId")
	if err != nil {
		response.BadRequest(w, "Invalid payment ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *LoanHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if response.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	response.FromError(w, err)
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	result, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, result)
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	loan, err := h.service.GetLoan(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, loan)
}

// UpdateTerms handles PUT /api/v1/loans/{loanId}/terms
func (h *LoanHandler) UpdateTerms(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var request domain.UpdateLoanTermsRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	loan, err := h.service.UpdateTerms(r.Context(), id, &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, loan)
}

func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	loan, err := h.service.ApproveLoan(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, loan)
}

// decision runs one of the reason-carrying lifecycle transitions.
func (h *LoanHandler) decision(fn func(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.loanID(w, r)
		if !ok {
			return
		}
		var request domain.LoanDecisionRequest
		if !h.decode(w, r, &request, true) {
			return
		}

		loan, err := fn(r.Context(), id, request.Reason)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		response.Success(w, loan)
	}
}

func (h *LoanHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	h.decision(h.service.RejectLoan)(w, r)
}

func (h *LoanHandler) MarkDefaulted(w http.ResponseWriter, r *http.Request) {
	h.decision(h.service.MarkDefaulted)(w, r)
}

func (h *LoanHandler) ForceClose(w http.ResponseWriter, r *http.Request) {
	h.decision(h.service.ForceClose)(w, r)
}

// DisburseLoan handles POST /api/v1/loans/{loanId}/disburse
func (h *LoanHandler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var request domain.DisburseLoanRequest
	if !h.decode(w, r, &request, true) {
		return
	}

	loan, err := h.service.DisburseLoan(r.Context(), id, &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, loan)
}

// GetOutstanding handles GET /api/v1/loans/{loanId}/outstanding
func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	outstanding, err := h.service.GetOutstanding(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, outstanding)
}

// GetSchedule handles GET /api/v1/loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, schedule)
}

func (h *LoanHandler) PrepaymentQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var request domain.PrepaymentQuoteRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	report, err := h.service.PrepaymentQuote(r.Context(), id, &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, report)
}

// GetOverdue handles GET /api/v1/loans/{loanId}/overdue
func (h *LoanHandler) GetOverdue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	overdue, err := h.service.GetOverdue(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, overdue)
}

// IsDelinquent handles GET /api/v1/loans/{loanId}/delinquent
func (h *LoanHandler) IsDelinquent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	result, err := h.service.IsDelinquent(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, result)
}

// PortfolioMetrics handles GET /api/v1/portfolio/metrics
func (h *LoanHandler) PortfolioMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.PortfolioMetrics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, metrics)
}
