package postgres

import (
	"context"
	"fmt"

	"payment-reconciler/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const historyColumns = `id, transaction_id, customer_id, payment_date, status, invoice_number,
	invoice_value, payment_method, reference, user_name, user_email, client_ip,
	business_agreement_code, payment_intention_identifier, created_at, updated_at`

// HistoryRepo implements ports.HistoryRepository over transfer_control_history.
type HistoryRepo struct {
	pool Pool
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(pool Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

// CountByTransaction returns how many historical rows exist for a transaction.
func (r *HistoryRepo) CountByTransaction(ctx context.Context, tx pgx.Tx, transactionID string) (int64, error) {
	var n int64
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM transfer_control_history WHERE transaction_id = $1`,
		transactionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count history rows: %w", err)
	}
	return n, nil
}

// InsertIfAbsent inserts the entries, skipping any (transaction_id,
// invoice_number) pair that already exists. It returns the number of rows
// actually inserted.
func (r *HistoryRepo) InsertIfAbsent(ctx context.Context, tx pgx.Tx, entries []domain.HistoricalEntry) (int64, error) {
	query := `INSERT INTO transfer_control_history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (transaction_id, invoice_number) DO NOTHING`

	var inserted int64
	for i := range entries {
		e := &entries[i]
		tag, err := tx.Exec(ctx, query,
			e.ID, e.TransactionID, e.CustomerID, e.PaymentDate, e.Status, e.InvoiceNumber,
			e.InvoiceValue, e.PaymentMethod, e.Reference, e.UserName, e.UserEmail, e.ClientIP,
			e.BusinessAgreementCode, e.PaymentIntentionIdentifier, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert history row for invoice %d: %w", e.InvoiceNumber, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// UpdateStatus sets the status of every row of the transaction whose stored status differs.
func (r *HistoryRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, transactionID string, status domain.TransactionStatus) (int64, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE transfer_control_history SET status = $1, updated_at = now()
		WHERE transaction_id = $2 AND status <> $1`,
		status, transactionID,
	)
	if err != nil {
		return 0, fmt.Errorf("update history status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListByTransaction returns the historical rows of a transaction ordered by invoice.
func (r *HistoryRepo) ListByTransaction(ctx context.Context, transactionID string) ([]domain.HistoricalEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM transfer_control_history
		WHERE transaction_id = $1 ORDER BY invoice_number`

	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list history rows: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoricalEntry
	for rows.Next() {
		var e domain.HistoricalEntry
		if err := rows.Scan(
			&e.ID, &e.TransactionID, &e.CustomerID, &e.PaymentDate, &e.Status, &e.InvoiceNumber,
			&e.InvoiceValue, &e.PaymentMethod, &e.Reference, &e.UserName, &e.UserEmail, &e.ClientIP,
			&e.BusinessAgreementCode, &e.PaymentIntentionIdentifier, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}
