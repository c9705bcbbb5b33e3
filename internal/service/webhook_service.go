package service

import (
	"context"
	"errors"
	"strings"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/core/reference"
	"payment-reconciler/pkg/apperror"
	"payment-reconciler/pkg/metrics"

	"github.com/rs/zerolog"
)

// WebhookServiceImpl implements ports.WebhookService.
type WebhookServiceImpl struct {
	decoder     *reference.Decoder
	ledger      *LedgerWriter
	ledgerRepo  ports.LedgerRepository
	historyRepo ports.HistoryRepository
	verifier    ports.EventVerifier
	dispatcher  *Dispatcher
	notifier    ports.NotificationService
	log         zerolog.Logger
}

// NewWebhookService wires the webhook pipeline. verifier may be nil.
func NewWebhookService(
	decoder *reference.Decoder,
	ledger *LedgerWriter,
	ledgerRepo ports.LedgerRepository,
	historyRepo ports.HistoryRepository,
	verifier ports.EventVerifier,
	dispatcher *Dispatcher,
	notifier ports.NotificationService,
	log zerolog.Logger,
) *WebhookServiceImpl {
	return &WebhookServiceImpl{
		decoder:     decoder,
		ledger:      ledger,
		ledgerRepo:  ledgerRepo,
		historyRepo: historyRepo,
		verifier:    verifier,
		dispatcher:  dispatcher,
		notifier:    notifier,
		log:         log,
	}
}

// Process decodes the delivery, appends it to the ledger and then classifies it.
// The ledger write happens before the status is looked at.
func (s *WebhookServiceImpl) Process(ctx context.Context, req ports.WebhookRequest) (*ports.WebhookResult, error) {
	if req.Event == nil {
		return nil, apperror.Validation("Event body is required")
	}
	tx := &req.Event.Data.Transaction
	tx.ID = strings.TrimSpace(tx.ID)
	if tx.ID == "" || tx.Status == "" {
		metrics.RecordWebhookEvent("rejected")
		return nil, apperror.Validation("Transaction id and status are required")
	}

	log := s.log.With().
		Str("transaction_id", tx.ID).
		Str("status", string(tx.Status)).
		Logger()

	if req.Event.Event != "" && req.Event.Event != domain.EventTransactionUpdated {
		log.Warn().Str("event", req.Event.Event).Msg("unexpected webhook event type")
	}

	if s.verifier != nil {
		if err := s.verifier.Verify(req.RawBody); err != nil {
			log.Warn().Err(err).Msg("webhook checksum rejected")
			metrics.RecordWebhookEvent("rejected")
			return nil, apperror.ErrInvalidSignature()
		}
	}

	decoded, err := s.decoder.Decode(tx.Reference, tx.DefaultInvoiceValue())
	if err != nil {
		recordDecodeFailure(err)
		log.Error().Err(err).Str("reference", tx.Reference).Msg("webhook reference could not be decoded")
		return nil, apperror.ErrDecode(err)
	}

	entries, err := s.ledger.Append(ctx, tx, decoded)
	if err != nil {
		return nil, err
	}

	rows, err := s.ledgerRepo.ListByTransaction(ctx, tx.ID)
	if err != nil {
		log.Error().Err(err).Msg("listing ledger rows failed")
		return nil, apperror.ErrPersistence(err)
	}
	refs := make([]string, 0, len(rows)+1)
	refs = append(refs, tx.Reference)
	for _, r := range rows {
		refs = append(refs, r.Reference)
	}

	branch, err := s.dispatcher.Classify(tx.Status, refs...)
	if err != nil {
		log.Warn().Msg("webhook carries an unhandled status")
		metrics.RecordWebhookEvent("unhandled")
		return nil, err
	}

	result := &ports.WebhookResult{
		TransactionID: tx.ID,
		Status:        tx.Status,
		Branch:        branch,
		LedgerRows:    len(entries),
	}

	switch branch {
	case ports.BranchNotification:
		history, err := s.historyRepo.ListByTransaction(ctx, tx.ID)
		if err != nil {
			log.Warn().Err(err).Msg("history unavailable, notifying with decoded invoices")
			history = nil
		}
		result.Notification = s.notifier.Notify(ctx, ports.NotificationInput{
			Transaction: tx,
			Tokens:      decoded.Tokens,
			History:     history,
		})
		log.Info().Bool("delivered", result.Notification.Error == "").Msg("webhook routed to downstream notification")
	case ports.BranchApproved:
		log.Info().Int("invoices", len(entries)).Msg("transaction approved")
	case ports.BranchDeclined:
		log.Warn().Int("invoices", len(entries)).Msg("transaction declined")
	case ports.BranchError:
		log.Error().Str("status_message", tx.StatusMessage).Msg("transaction failed at gateway")
	}

	metrics.RecordWebhookEvent(string(branch))
	return result, nil
}

func recordDecodeFailure(err error) {
	reason := "unknown"
	var de *reference.DecodeError
	if errors.As(err, &de) {
		reason = string(de.Reason)
	}
	metrics.RecordDecodeFailure(reason)
}
