package handler

import (
	"net/http"

	"payment-reconciler/config"
	"payment-reconciler/internal/adapter/http/dto"
	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/pkg/apperror"
	"payment-reconciler/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
)

// ValidationHandler serves the gateway-facing reconciliation endpoints.
type ValidationHandler struct {
	webhookSvc      ports.WebhookService
	confirmationSvc ports.ConfirmationService
	historySvc      ports.HistoryService
	db              ports.HealthChecker
	server          config.ServerConfig
	log             zerolog.Logger
}

// NewValidationHandler creates a new ValidationHandler.
func NewValidationHandler(
	webhookSvc ports.WebhookService,
	confirmationSvc ports.ConfirmationService,
	historySvc ports.HistoryService,
	db ports.HealthChecker,
	server config.ServerConfig,
	log zerolog.Logger,
) *ValidationHandler {
	return &ValidationHandler{
		webhookSvc:      webhookSvc,
		confirmationSvc: confirmationSvc,
		historySvc:      historySvc,
		db:              db,
		server:          server,
		log:             log,
	}
}

// Webhook handles POST /api/validation/webhook.
func (h *ValidationHandler) Webhook(c *gin.Context) {
	var event domain.WebhookEvent
	if err := c.ShouldBindBodyWith(&event, binding.JSON); err != nil {
		h.log.Warn().Err(err).Str("request_id", response.RequestID(c)).Msg("malformed webhook body")
		response.Error(c, apperror.Validation("Malformed webhook body"))
		return
	}
	var raw []byte
	if v, ok := c.Get(gin.BodyBytesKey); ok {
		raw, _ = v.([]byte)
	}

	result, err := h.webhookSvc.Process(c.Request.Context(), ports.WebhookRequest{Event: &event, RawBody: raw})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.WebhookResponse{
		Status:        "Success",
		Message:       "Webhook processed",
		TransactionID: result.TransactionID,
		Branch:        string(result.Branch),
	}
	resp.ApplyNotification(result.Notification)
	response.OK(c, resp)
}

// Confirmation handles GET /api/validation/confirmation?transactionId=.
func (h *ValidationHandler) Confirmation(c *gin.Context) {
	var q dto.ConfirmationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation("transactionId is required"))
		return
	}

	result, err := h.confirmationSvc.Resolve(c.Request.Context(), ports.ConfirmationRequest{
		TransactionID: q.TransactionID,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.ConfirmationResponse{
		Status:          string(result.Status),
		TransactionID:   result.TransactionID,
		Source:          string(result.Source),
		PaymentMetadata: result.Metadata,
	}
	if result.Source == ports.SourceHistory {
		resp.Data = nonNil(result.History)
	} else {
		resp.Data = nonNil(result.Ledger)
	}
	resp.ApplyNotification(result.Notification)
	response.OK(c, resp)
}

// History handles GET /api/validation/history/:transactionId.
func (h *ValidationHandler) History(c *gin.Context) {
	var uri dto.TransactionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.Validation("transactionId is invalid"))
		return
	}

	history, err := h.historySvc.GetTransactionHistory(c.Request.Context(), uri.TransactionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.HistoryResponse{
		TransactionID: history.TransactionID,
		History:       nonNil(history.History),
		Ledger:        nonNil(history.Ledger),
	})
}

// TestConnection handles GET /api/validation/test-connection.
func (h *ValidationHandler) TestConnection(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("database connection check failed")
		response.Error(c, apperror.ErrPersistence(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "Success",
		"message": "Database connection succeeded",
	})
}

// EnvCheck handles GET /api/validation/env-check.
func (h *ValidationHandler) EnvCheck(c *gin.Context) {
	response.OK(c, dto.EnvCheckResponse{
		Environment:   h.server.Environment,
		Mode:          h.server.Mode,
		IsDevelopment: h.server.Environment == "development",
	})
}

// nonNil keeps empty row sets serialising as [] rather than null.
func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
