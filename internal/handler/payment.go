package handler

import (
	"net/http"

	"github.com/segyhp/loan-ledger/internal/domain"
	"github.com/segyhp/loan-ledger/pkg/response"
)

// MakePayment handles POST /api/v1/loans/{loanId}/payments
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var request domain.MakePaymentRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	result, err := h.service.MakePayment(r.Context(), id, &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, result)
}

// SubmitPayment records a payment that settles later through ConfirmPayment.
func (h *LoanHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var request domain.MakePaymentRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	payment, err := h.service.SubmitPayment(r.Context(), id, &request)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusAccepted, payment)
}

func (h *LoanHandler) PreviewPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var request domain.PreviewPaymentRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	allocation, err := h.service.PreviewPayment(r.Context(), id, request.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, allocation)
}

// ListPayments handles GET /api/v1/loans/{loanId}/payments
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if payments == nil {
		payments = []*domain.Payment{}
	}

	response.Success(w, payments)
}

// GetPayment handles GET /api/v1/payments/{paymentId}
func (h *LoanHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paymentID(w, r)
	if !ok {
		return
	}

	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, payment)
}

func (h *LoanHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paymentID(w, r)
	if !ok {
		return
	}

	result, err := h.service.ConfirmPayment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, result)
}

func (h *LoanHandler) FailPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paymentID(w, r)
	if !ok {
		return
	}
	var request domain.FailPaymentRequest
	if !h.decode(w, r, &request, true) {
		return
	}

	payment, err := h.service.FailPayment(r.Context(), id, request.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, payment)
}

func (h *LoanHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paymentID(w, r)
	if !ok {
		return
	}

	payment, err := h.service.CancelPayment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, payment)
}

// ReversePayment handles POST /api/v1/payments/{paymentId}/reverse. The
// reversal is a new payment row; the original is kept and marked reversed.
func (h *LoanHandler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paymentID(w, r)
	if !ok {
		return
	}
	var request domain.ReversePaymentRequest
	if !h.decode(w, r, &request, false) {
		return
	}

	result, err := h.service.ReversePayment(r.Context(), id, request.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Created(w, result)
}
