package service

import (
	"context"
	"fmt"
	"time"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/core/reference"
	"payment-reconciler/pkg/apperror"
	"payment-reconciler/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerWriter appends the audit rows of one webhook delivery.
type LedgerWriter struct {
	repo       ports.LedgerRepository
	transactor ports.DBTransactor
	now        func() time.Time
	log        zerolog.Logger
}

func NewLedgerWriter(repo ports.LedgerRepository, transactor ports.DBTransactor, log zerolog.Logger) *LedgerWriter {
	return &LedgerWriter{
		repo:       repo,
		transactor: transactor,
		now:        time.Now,
		log:        log,
	}
}

// Append writes one row per decoded invoice. The rows of a delivery are
// committed together or not at all.
func (w *LedgerWriter) Append(ctx context.Context, tx *domain.Transaction, decoded *reference.Decoded) ([]domain.LedgerEntry, error) {
	entries := w.buildEntries(tx, decoded)

	dbTx, err := w.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("begin ledger tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := w.repo.InsertBatch(ctx, dbTx, entries); err != nil {
		w.log.Error().
			Err(err).
			Str("transaction_id", tx.ID).
			Str("reference", tx.Reference).
			Msg("ledger append failed")
		return nil, apperror.ErrPersistence(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("commit ledger tx: %w", err))
	}

	metrics.RecordLedgerRows(len(entries))
	w.log.Debug().
		Str("transaction_id", tx.ID).
		Int("rows", len(entries)).
		Msg("ledger rows appended")
	return entries, nil
}

func (w *LedgerWriter) buildEntries(tx *domain.Transaction, decoded *reference.Decoded) []domain.LedgerEntry {
	now := w.now().UTC()
	paidAt := tx.PaymentDate(now)

	entries := make([]domain.LedgerEntry, 0, len(decoded.Tokens))
	for _, tok := range decoded.Tokens {
		entries = append(entries, domain.LedgerEntry{
			ID:            uuid.New(),
			TransactionID: tx.ID,
			CustomerID:    decoded.CustomerID,
			PaymentDate:   paidAt,
			Status:        tx.Status,
			InvoiceNumber: tok.InvoiceNumber,
			InvoiceValue:  tok.InvoiceValue,
			Discount:      tok.Discount,
			PaymentMethod: tx.FranchiseLabel(),
			Reference:     tx.Reference,
			UserName:      tx.CustomerData.FullName,
			UserEmail:     tx.CustomerEmail,
			CreatedAt:     now,
		})
	}
	return entries
}
