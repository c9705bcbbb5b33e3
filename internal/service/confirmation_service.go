package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/core/reference"
	"payment-reconciler/pkg/apperror"
	"payment-reconciler/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ConfirmationServiceImpl implements ports.ConfirmationService.
type ConfirmationServiceImpl struct {
	gateway     ports.GatewayClient
	decoder     *reference.Decoder
	historyRepo ports.HistoryRepository
	ledgerRepo  ports.LedgerRepository
	transactor  ports.DBTransactor
	locker      ports.TransactionLocker
	dispatcher  *Dispatcher
	notifier    ports.NotificationService
	now         func() time.Time
	log         zerolog.Logger
}

func NewConfirmationService(
	gateway ports.GatewayClient,
	decoder *reference.Decoder,
	historyRepo ports.HistoryRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	locker ports.TransactionLocker,
	dispatcher *Dispatcher,
	notifier ports.NotificationService,
	log zerolog.Logger,
) *ConfirmationServiceImpl {
	return &ConfirmationServiceImpl{
		gateway:     gateway,
		decoder:     decoder,
		historyRepo: historyRepo,
		ledgerRepo:  ledgerRepo,
		transactor:  transactor,
		locker:      locker,
		dispatcher:  dispatcher,
		notifier:    notifier,
		now:         time.Now,
		log:         log,
	}
}

// Resolve fetches the transaction from the gateway and reconciles it with
// the historical rows. Rows are inserted only by the first call that finds
// none; later calls only move their status.
func (s *ConfirmationServiceImpl) Resolve(ctx context.Context, req ports.ConfirmationRequest) (*ports.ConfirmationResult, error) {
	id := strings.TrimSpace(req.TransactionID)
	if id == "" {
		return nil, apperror.Validation("transactionId is required")
	}
	log := s.log.With().Str("transaction_id", id).Logger()

	tx, err := s.gateway.GetTransaction(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("gateway lookup failed")
		metrics.RecordConfirmation("unknown", "gateway_error")
		return nil, apperror.ErrGatewayUnavailable(err)
	}
	log = log.With().Str("status", string(tx.Status)).Logger()

	decoded, err := s.decoder.DecodeConfirmation(tx.Reference, tx.DefaultInvoiceValue())
	if err != nil {
		recordDecodeFailure(err)
		log.Error().Err(err).Str("reference", tx.Reference).Msg("confirmation reference could not be decoded")
		metrics.RecordConfirmation(string(tx.Status), "decode_error")
		return nil, apperror.ErrDecode(err)
	}

	inserted, updated, err := s.reconcile(ctx, tx, decoded, req.ClientIP)
	if err != nil {
		log.Error().Err(err).Msg("historical reconciliation failed")
		metrics.RecordConfirmation(string(tx.Status), "error")
		return nil, err
	}
	metrics.RecordHistoryChanges(inserted, updated)

	result := &ports.ConfirmationResult{
		TransactionID: tx.ID,
		Status:        tx.Status,
		Metadata:      tx.Metadata(),
		Inserted:      inserted,
		Updated:       updated,
	}

	if tx.Status == domain.TransactionStatusApproved {
		result.Source = ports.SourceHistory
		if result.History, err = s.historyRepo.ListByTransaction(ctx, tx.ID); err != nil {
			metrics.RecordConfirmation(string(tx.Status), "error")
			return nil, apperror.ErrPersistence(err)
		}
	} else {
		result.Source = ports.SourceLedger
		if result.Ledger, err = s.ledgerRepo.ListByTransaction(ctx, tx.ID); err != nil {
			metrics.RecordConfirmation(string(tx.Status), "error")
			return nil, apperror.ErrPersistence(err)
		}
	}

	if s.shouldNotify(tx, inserted, updated) {
		history := result.History
		if history == nil {
			if history, err = s.historyRepo.ListByTransaction(ctx, tx.ID); err != nil {
				log.Warn().Err(err).Msg("history unavailable, notifying with decoded invoices")
			}
		}
		result.Notification = s.notifier.Notify(ctx, ports.NotificationInput{
			Transaction: tx,
			Tokens:      decoded.Tokens,
			History:     history,
		})
	}

	log.Info().
		Int64("inserted", inserted).
		Int64("updated", updated).
		Str("source", string(result.Source)).
		Bool("notified", result.Notification != nil).
		Msg("confirmation resolved")
	metrics.RecordConfirmation(string(tx.Status), "ok")
	return result, nil
}

// The downstream system hears about a flagged transaction once, when this
// call moved its rows into a final approved or declined state.
func (s *ConfirmationServiceImpl) shouldNotify(tx *domain.Transaction, inserted, updated int64) bool {
	if inserted == 0 && updated == 0 {
		return false
	}
	if tx.Status != domain.TransactionStatusApproved && tx.Status != domain.TransactionStatusDeclined {
		return false
	}
	return s.dispatcher.RequiresNotification(tx.Reference)
}

// reconcile runs the insert-once-then-update sequence under the
// per-transaction lock and inside one database transaction.
func (s *ConfirmationServiceImpl) reconcile(ctx context.Context, tx *domain.Transaction, decoded *reference.Decoded, clientIP string) (inserted, updated int64, err error) {
	token, err := s.locker.Acquire(ctx, tx.ID)
	if err != nil {
		if errors.Is(err, ports.ErrLockNotAcquired) {
			return 0, 0, apperror.ErrLockTimeout(err)
		}
		s.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("transaction lock unavailable")
		return 0, 0, apperror.ErrPersistence(err)
	}
	defer func() {
		if rerr := s.locker.Release(context.WithoutCancel(ctx), tx.ID, token); rerr != nil {
			s.log.Warn().Err(rerr).Str("transaction_id", tx.ID).Msg("releasing transaction lock failed")
		}
	}()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return 0, 0, apperror.ErrPersistence(fmt.Errorf("begin history tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	existing, err := s.historyRepo.CountByTransaction(ctx, dbTx, tx.ID)
	if err != nil {
		return 0, 0, apperror.ErrPersistence(err)
	}

	if existing == 0 {
		inserted, err = s.historyRepo.InsertIfAbsent(ctx, dbTx, s.buildHistory(tx, decoded, clientIP))
		if err != nil {
			return 0, 0, apperror.ErrPersistence(err)
		}
	}

	if tx.Status != domain.TransactionStatusPending {
		updated, err = s.historyRepo.UpdateStatus(ctx, dbTx, tx.ID, tx.Status)
		if err != nil {
			return 0, 0, apperror.ErrPersistence(err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return 0, 0, apperror.ErrPersistence(fmt.Errorf("commit history tx: %w", err))
	}
	return inserted, updated, nil
}

func (s *ConfirmationServiceImpl) buildHistory(tx *domain.Transaction, decoded *reference.Decoded, clientIP string) []domain.HistoricalEntry {
	now := s.now().UTC()
	paidAt := tx.PaymentDate(now)
	meta := tx.Metadata()

	entries := make([]domain.HistoricalEntry, 0, len(decoded.Tokens))
	for _, tok := range decoded.Tokens {
		entries = append(entries, domain.HistoricalEntry{
			ID:                         uuid.New(),
			TransactionID:              tx.ID,
			CustomerID:                 decoded.CustomerID,
			PaymentDate:                paidAt,
			Status:                     tx.Status,
			InvoiceNumber:              tok.InvoiceNumber,
			InvoiceValue:               tok.InvoiceValue,
			PaymentMethod:              tx.FranchiseLabel(),
			Reference:                  tx.Reference,
			UserName:                   tx.CustomerData.FullName,
			UserEmail:                  tx.CustomerEmail,
			ClientIP:                   clientIP,
			BusinessAgreementCode:      meta.BusinessAgreementCode,
			PaymentIntentionIdentifier: meta.PaymentIntentionIdentifier,
			CreatedAt:                  now,
			UpdatedAt:                  now,
		})
	}
	return entries
}
