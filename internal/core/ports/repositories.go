package ports

import (
	"context"

	"payment-reconciler/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// LedgerRepository persists the append-only transfer_control audit rows.
type LedgerRepository interface {
	InsertBatch(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) error
	ListByTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)
}

// HistoryRepository persists reconciled rows. Inserts must ignore rows whose
// (transaction_id, invoice_number) already exists.
type HistoryRepository interface {
	CountByTransaction(ctx context.Context, tx pgx.Tx, transactionID string) (int64, error)
	InsertIfAbsent(ctx context.Context, tx pgx.Tx, entries []domain.HistoricalEntry) (int64, error)
	// UpdateStatus changes rows whose stored status differs and returns how many changed.
	UpdateStatus(ctx context.Context, tx pgx.Tx, transactionID string, status domain.TransactionStatus) (int64, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]domain.HistoricalEntry, error)
}

// DBTransactor manages database transactions.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
