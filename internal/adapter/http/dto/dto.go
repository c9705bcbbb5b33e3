package dto

import (
	"time"

	"payment-reconciler/internal/core/domain"
)

// ConfirmationQuery binds GET /api/validation/confirmation.
type ConfirmationQuery struct {
	TransactionID string `form:"transactionId" binding:"required,wompi_id"`
}

// TransactionURI binds the :transactionId path parameter.
type TransactionURI struct {
	TransactionID string `uri:"transactionId" binding:"required,wompi_id"`
}

// LoginRequest is the request body for back-office login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is the response body for a successful login.
type LoginResponse struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
}

// WebhookResponse acknowledges a processed gateway event.
type WebhookResponse struct {
	Status        string              `json:"status"`
	Message       string              `json:"message"`
	TransactionID string              `json:"transactionId"`
	Branch        string              `json:"branch"`
	EvaRequest    domain.Notification `json:"evaRequest,omitempty"`
	EvaResponse   string              `json:"evaResponse,omitempty"`
	EvaError      string              `json:"evaError,omitempty"`
}

// ConfirmationResponse carries the reconciled rows of one transaction.
type ConfirmationResponse struct {
	Status          string                 `json:"status"`
	TransactionID   string                 `json:"transactionId"`
	Source          string                 `json:"source"`
	PaymentMetadata domain.PaymentMetadata `json:"paymentMetadata"`
	Data            interface{}            `json:"data"`
	EvaRequest      domain.Notification    `json:"evaRequest,omitempty"`
	EvaResponse     string                 `json:"evaResponse,omitempty"`
	EvaError        string                 `json:"evaError,omitempty"`
}

// HistoryResponse lists both stores for one transaction.
type HistoryResponse struct {
	TransactionID string                   `json:"transactionId"`
	History       []domain.HistoricalEntry `json:"history"`
	Ledger        []domain.LedgerEntry     `json:"ledger"`
}

// EnvCheckResponse reports the running environment.
type EnvCheckResponse struct {
	Environment   string `json:"environment"`
	Mode          string `json:"mode"`
	IsDevelopment bool   `json:"isDevelopment"`
}

// ApplyNotification copies a downstream outcome into the eva* fields.
func (r *WebhookResponse) ApplyNotification(o *domain.NotificationOutcome) {
	if o == nil {
		return
	}
	r.EvaRequest, r.EvaResponse, r.EvaError = o.Request, o.Response, o.Error
}

// ApplyNotification copies a downstream outcome into the eva* fields.
func (r *ConfirmationResponse) ApplyNotification(o *domain.NotificationOutcome) {
	if o == nil {
		return
	}
	r.EvaRequest, r.EvaResponse, r.EvaError = o.Request, o.Response, o.Error
}
