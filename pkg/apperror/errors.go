package apperror

import (
	"fmt"
	"net/http"
)

// Codes double as the "status" field of error bodies, so they are
// human-readable names rather than numeric series.
const (
	CodeValidation         = "ValidationError"
	CodeUnhandledStatus    = "UnhandledStatus"
	CodeInvalidSignature   = "InvalidSignature"
	CodeInvalidCredentials = "InvalidCredentials"
	CodeInvalidToken       = "InvalidToken"
	CodeNotFound           = "NotFound"
	CodeRateLimitExceeded  = "RateLimitExceeded"
	CodeGatewayUnavailable = "WompiError"
	CodeLockTimeout        = "LockTimeout"
	CodePersistence        = "PersistenceError"
	CodeDecode             = "DecodeError"
	CodeInternal           = "InternalError"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"status"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Input ----

// Validation reports missing or malformed caller input.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func ErrUnhandledStatus(status string) *AppError {
	return New(CodeUnhandledStatus, fmt.Sprintf("Unhandled transaction status: %s", status), http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Security ----

func ErrInvalidSignature() *AppError {
	return New(CodeInvalidSignature, "Invalid event checksum", http.StatusUnauthorized)
}

func ErrInvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Upstream & infrastructure ----

// ErrGatewayUnavailable covers an unreachable gateway and any non-success answer from it.
func ErrGatewayUnavailable(err error) *AppError {
	return Wrap(CodeGatewayUnavailable, "Payment gateway unavailable", http.StatusBadGateway, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap(CodeLockTimeout, "Transaction is being reconciled by another request", http.StatusServiceUnavailable, err)
}

func ErrPersistence(err error) *AppError {
	return Wrap(CodePersistence, "Storage failure", http.StatusInternalServerError, err)
}

func ErrDecode(err error) *AppError {
	return Wrap(CodeDecode, "Payment reference could not be decoded", http.StatusInternalServerError, err)
}

// InternalError wraps an unexpected internal error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
