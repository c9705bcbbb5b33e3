package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   Validation("transactionId is required"),
			expected: "[ValidationError] transactionId is required",
		},
		{
			name:     "with wrapped error",
			appErr:   ErrPersistence(fmt.Errorf("connection refused")),
			expected: "[PersistenceError] Storage failure: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := ErrGatewayUnavailable(inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New(CodeNotFound, "test", http.StatusNotFound)
	assert.Nil(t, appErr.Unwrap())
}

func TestInputErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"Validation", Validation("missing id"), "ValidationError", 400},
		{"UnhandledStatus", ErrUnhandledStatus("PENDING"), "UnhandledStatus", 400},
		{"NotFound", ErrNotFound("Transaction"), "NotFound", 404},
		{"InvalidSignature", ErrInvalidSignature(), "InvalidSignature", 401},
		{"InvalidCredentials", ErrInvalidCredentials(), "InvalidCredentials", 401},
		{"InvalidToken", ErrInvalidToken(), "InvalidToken", 401},
		{"RateLimit", ErrRateLimitExceeded(), "RateLimitExceeded", 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestInfrastructureErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")

	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"Gateway", ErrGatewayUnavailable(inner), "WompiError", 502},
		{"Lock", ErrLockTimeout(inner), "LockTimeout", 503},
		{"Persistence", ErrPersistence(inner), "PersistenceError", 500},
		{"Decode", ErrDecode(inner), "DecodeError", 500},
		{"Internal", InternalError(inner), "InternalError", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.True(t, errors.Is(tt.err, inner))
		})
	}
}

func TestUnhandledStatus_MessageNamesStatus(t *testing.T) {
	err := ErrUnhandledStatus("VOIDED")
	assert.Contains(t, err.Message, "VOIDED")
}
