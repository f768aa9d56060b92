package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/internal/mocks"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoanHandler_MakePayment(t *testing.T) {
	loanID := uuid.New()
	path := "/api/v1/loans/" + loanID.String() + "/payments"

	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*mocks.MockLoanService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful EMI payment",
			body: map[string]interface{}{"amount": "8884.88", "method": "upi", "reference": "UTR123"},
			setupMock: func(m *mocks.MockLoanService) {
				payment := &domain.Payment{
					ID:                 uuid.New(),
					PaymentNumber:      "PAY2026021500001",
					LoanID:             loanID,
					Amount:             decimal.RequireFromString("8884.88"),
					InterestComponent:  decimal.RequireFromString("1000.00"),
					PrincipalComponent: decimal.RequireFromString("7884.88"),
					Status:             domain.PaymentStatusCompleted,
				}
				m.On("MakePayment", mock.Anything, loanID, mock.MatchedBy(func(req *domain.MakePaymentRequest) bool {
					return req.Amount.Equal(decimal.RequireFromString("8884.88")) && req.Method == "upi" && req.Reference == "UTR123"
				})).Return(&domain.MakePaymentResponse{Payment: payment, Loan: &domain.Loan{ID: loanID}}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   "PAY2026021500001",
		},
		{
			name:           "missing method",
			body:           map[string]interface{}{"amount": "100"},
			setupMock:      func(m *mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Validation failed",
		},
		{
			name:           "negative amount",
			body:           map[string]interface{}{"amount": "-5", "method": "cash"},
			setupMock:      func(m *mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Validation failed",
		},
		{
			name:           "unknown payment type",
			body:           map[string]interface{}{"amount": "100", "method": "cash", "type": "bonus"},
			setupMock:      func(m *mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "overpayment",
			body: map[string]interface{}{"amount": "999999", "method": "cash"},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("MakePayment", mock.Anything, loanID, mock.Anything).
					Return(nil, customError.WrapPaymentExceedsOutstanding("999999.00", "93036.27")).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   customError.ErrCodePaymentExceedsOutstanding,
		},
		{
			name: "loan not active",
			body: map[string]interface{}{"amount": "100", "method": "cash"},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("MakePayment", mock.Anything, loanID, mock.Anything).
					Return(nil, customError.WrapLoanNotActive(loanID.String(), "closed")).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   customError.ErrCodeLoanNotActive,
		},
		{
			name: "lock held elsewhere",
			body: map[string]interface{}{"amount": "100", "method": "cash"},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("MakePayment", mock.Anything, loanID, mock.Anything).
					Return(nil, customError.WrapLockUnavailable(loanID.String(), nil)).Once()
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := mocks.NewMockLoanService()
			tt.setupMock(service)

			w := doRequest(newTestRouter(service), http.MethodPost, path, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestLoanHandler_PreviewPayment(t *testing.T) {
	loanID := uuid.New()
	service := mocks.NewMockLoanService()
	service.On("PreviewPayment", mock.Anything, loanID, mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.Equal(decimal.NewFromInt(5000))
	})).Return(&domain.Allocation{
		Amount:             decimal.RequireFromString("5000.00"),
		InterestDue:        decimal.RequireFromString("1000.00"),
		InterestComponent:  decimal.RequireFromString("1000.00"),
		PrincipalComponent: decimal.RequireFromString("4000.00"),
		RemainingBalance:   decimal.RequireFromString("96000.00"),
	}, nil).Once()

	w := doRequest(newTestRouter(service), http.MethodPost,
		"/api/v1/loans/"+loanID.String()+"/payments/preview", map[string]string{"amount": "5000"})

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	var allocation domain.Allocation
	require.NoError(t, json.Unmarshal(env.Data, &allocation))
	assert.True(t, allocation.PrincipalComponent.Equal(decimal.NewFromInt(4000)))
	assert.True(t, allocation.RemainingBalance.Equal(decimal.NewFromInt(96000)))
	service.AssertExpectations(t)
}

func TestLoanHandler_PaymentOperations(t *testing.T) {
	loanID := uuid.New()
	paymentID := uuid.New()
	base := "/api/v1/payments/" + paymentID.String()

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		setupMock      func(*mocks.MockLoanService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "submit pending payment",
			method: http.MethodPost,
			path:   "/api/v1/loans/" + loanID.String() + "/payments/pending",
			body:   map[string]interface{}{"amount": "1000", "method": "cheque"},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("SubmitPayment", mock.Anything, loanID, mock.Anything).
					Return(&domain.Payment{ID: paymentID, Status: domain.PaymentStatusPending}, nil).Once()
			},
			expectedStatus: http.StatusAccepted,
			expectedBody:   `"status":"pending"`,
		},
		{
			name:   "get payment",
			method: http.MethodGet,
			path:   base,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("GetPayment", mock.Anything, paymentID).Return(&domain.Payment{ID: paymentID}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed payment id",
			method:         http.MethodGet,
			path:           "/api/v1/payments/xyz",
			setupMock:      func(m *mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid payment ID",
		},
		{
			name:   "payment not found",
			method: http.MethodGet,
			path:   base,
			setupMock: func(m *mocks.MockLoanService) {
				m.On("GetPayment", mock.Anything, paymentID).Return(nil, customError.WrapPaymentNotFound(paymentID.String())).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "confirm",
			method: http.MethodPost,
			path:   base + "/confirm",
			setupMock: func(m *mocks.MockLoanService) {
				m.On("ConfirmPayment", mock.Anything, paymentID).Return(&domain.MakePaymentResponse{
					Payment: &domain.Payment{ID: paymentID, Status: domain.PaymentStatusCompleted},
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"completed"`,
		},
		{
			name:   "confirm a settled payment",
			method: http.MethodPost,
			path:   base + "/confirm",
			setupMock: func(m *mocks.MockLoanService) {
				m.On("ConfirmPayment", mock.Anything, paymentID).
					Return(nil, customError.WrapPaymentNotPending(paymentID.String(), "completed")).Once()
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:   "fail with reason",
			method: http.MethodPost,
			path:   base + "/fail",
			body:   map[string]string{"reason": "cheque bounced"},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("FailPayment", mock.Anything, paymentID, "cheque bounced").
					Return(&domain.Payment{ID: paymentID, Status: domain.PaymentStatusFailed}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "cancel",
			method: http.MethodPost,
			path:   base + "/cancel",
			setupMock: func(m *mocks.MockLoanService) {
				m.On("CancelPayment", mock.Anything, paymentID).
					Return(&domain.Payment{ID: paymentID, Status: domain.PaymentStatusCancelled}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "reverse",
			method: http.MethodPost,
			path:   base + "/reverse",
			body:   map[string]string{"reason": "duplicate"},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("ReversePayment", mock.Anything, paymentID, "duplicate").Return(&domain.ReversePaymentResponse{
					Original: &domain.Payment{ID: paymentID, Status: domain.PaymentStatusReversed},
					Reversal: &domain.Payment{ID: uuid.New(), PaymentNumber: "REV_PAY2026021500001"},
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   "REV_PAY2026021500001",
		},
		{
			name:           "reverse without reason",
			method:         http.MethodPost,
			path:           base + "/reverse",
			setupMock:      func(m *mocks.MockLoanService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "reverse twice",
			method: http.MethodPost,
			path:   base + "/reverse",
			body:   map[string]string{"reason": "duplicate"},
			setupMock: func(m *mocks.MockLoanService) {
				m.On("ReversePayment", mock.Anything, paymentID, "duplicate").
					Return(nil, customError.WrapAlreadyReversed(paymentID.String())).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   customError.ErrCodeAlreadyReversed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := mocks.NewMockLoanService()
			tt.setupMock(service)

			w := doRequest(newTestRouter(service), tt.method, tt.path, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			service.AssertExpectations(t)
		})
	}
}
