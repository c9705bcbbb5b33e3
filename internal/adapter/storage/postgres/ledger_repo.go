package postgres

import (
	"context"
	"fmt"

	"payment-reconciler/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `id, transaction_id, customer_id, payment_date, status, invoice_number,
	invoice_value, discount, payment_method, reference, user_name, user_email, created_at`

// LedgerRepo implements ports.LedgerRepository over the transfer_control table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// InsertBatch appends every entry inside tx. No existence check is made:
// each webhook delivery adds its own rows.
func (r *LedgerRepo) InsertBatch(ctx context.Context, tx pgx.Tx, entries []domain.LedgerEntry) error {
	query := `INSERT INTO transfer_control (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	for i := range entries {
		e := &entries[i]
		_, err := tx.Exec(ctx, query,
			e.ID, e.TransactionID, e.CustomerID, e.PaymentDate, e.Status, e.InvoiceNumber,
			e.InvoiceValue, e.Discount, e.PaymentMethod, e.Reference, e.UserName, e.UserEmail, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert ledger row for invoice %d: %w", e.InvoiceNumber, err)
		}
	}
	return nil
}

// ListByTransaction returns every ledger row of a transaction, oldest first.
func (r *LedgerRepo) ListByTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM transfer_control
		WHERE transaction_id = $1 ORDER BY created_at, invoice_number`

	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list ledger rows: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.TransactionID, &e.CustomerID, &e.PaymentDate, &e.Status, &e.InvoiceNumber,
			&e.InvoiceValue, &e.Discount, &e.PaymentMethod, &e.Reference, &e.UserName, &e.UserEmail, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}
