package handler

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the health checks and the /api/v1 ledger API.
func RegisterRoutes(router *mux.Router, loans *LoanHandler, health *HealthHandler) {
	router.HandleFunc("/health", health.Health).Methods("GET")
	router.HandleFunc("/health/ready", health.Ready).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", loans.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", loans.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/terms", loans.UpdateTerms).Methods("PUT")
	api.HandleFunc("/loans/{loanId}/approve", loans.ApproveLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/reject", loans.RejectLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/disburse", loans.DisburseLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/default", loans.MarkDefaulted).Methods("POST")
	api.HandleFunc("/loans/{loanId}/close", loans.ForceClose).Methods("POST")

	api.HandleFunc("/loans/{loanId}/schedule", loans.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/outstanding", loans.GetOutstanding).Methods("GET")
	api.HandleFunc("/loans/{loanId}/overdue", loans.GetOverdue).Methods("GET")
	api.HandleFunc("/loans/{loanId}/delinquent", loans.IsDelinquent).Methods("GET")
	api.HandleFunc("/loans/{loanId}/prepayment-quote", loans.PrepaymentQuote).Methods("POST")

	api.HandleFunc("/loans/{loanId}/payments", loans.MakePayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/payments", loans.ListPayments).Methods("GET")
	api.HandleFunc("/loans/{loanId}/payments/preview", loans.PreviewPayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/payments/pending", loans.SubmitPayment).Methods("POST")

	api.HandleFunc("/payments/{paymentId}", loans.GetPayment).Methods("GET")
	api.HandleFunc("/payments/{paymentId}/confirm", loans.ConfirmPayment).Methods("POST")
	api.HandleFunc("/payments/{paymentId}/fail", loans.FailPayment).Methods("POST")
	api.HandleFunc("/payments/{paymentId}/cancel", loans.CancelPayment).Methods("POST")
	api.HandleFunc("/payments/{paymentId}/reverse", loans.ReversePayment).Methods("POST")

	api.HandleFunc("/portfolio/metrics", loans.PortfolioMetrics).Methods("GET")
}
