package response

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"go.uber.org/zap"
)

type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ErrorResponse struct {
	Success   bool      `json:"success"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response := Response{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// Success sends a successful JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Created sends a created JSON response
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Error sends an error JSON response
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	response := ErrorResponse{
		Success:   false,
		Code:      customError.Code(err),
		Message:   message,
		Timestamp: time.Now(),
	}

	if err != nil {
		response.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		log.Printf("Error encoding error response: %v", encodeErr)
	}
}

// statusByCode maps business error codes onto HTTP statuses. Unknown codes
// are server errors.
var statusByCode = map[string]int{
	customError.ErrCodeLoanNotFound:              http.StatusNotFound,
	customError.ErrCodePaymentNotFound:           http.StatusNotFound,
	customError.ErrCodeInvalidLoanTerms:          http.StatusBadRequest,
	customError.ErrCodeInvalidPaymentAmount:      http.StatusBadRequest,
	customError.ErrCodeValidation:                http.StatusBadRequest,
	customError.ErrCodeInstallmentOutOfOrder:     http.StatusBadRequest,
	customError.ErrCodePaymentLoanMismatch:       http.StatusBadRequest,
	customError.ErrCodeLoanNotActive:             http.StatusConflict,
	customError.ErrCodeAlreadyReversed:           http.StatusConflict,
	customError.ErrCodeNotCompleted:              http.StatusConflict,
	customError.ErrCodeReversalNotReversible:     http.StatusConflict,
	customError.ErrCodePaymentNotPending:         http.StatusConflict,
	customError.ErrCodeInvalidTransition:         http.StatusConflict,
	customError.ErrCodePaymentExceedsOutstanding: http.StatusUnprocessableEntity,
	customError.ErrCodeLockUnavailable:           http.StatusServiceUnavailable,
}

// StatusFor returns the HTTP status matching err's business code.
func StatusFor(err error) int {
	if status, ok := statusByCode[customError.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError sends err with the status its business code maps to. Messages
// of BusinessErrors are safe to show to clients; anything else is not.
func FromError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		Error(w, status, "Internal server error", nil)
		return
	}
	message := err.Error()
	if be, ok := customError.AsBusinessError(err); ok {
		message = be.Message
	}
	Error(w, status, message, err)
}

// BadRequest sends a 400 bad request response
func BadRequest(w http.ResponseWriter, message string, err error) {
	Error(w, http.StatusBadRequest, message, err)
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create a response recorder to capture the status code
			recorder := &responseRecorder{ResponseWriter: w, statusCode: 200}

			next.ServeHTTP(recorder, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.statusCode),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *responseRecorder) WriteHeader(statusCode int) {
	rec.statusCode = statusCode
	rec.ResponseWriter.WriteHeader(statusCode)
}
