package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"payment-reconciler/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// --- In-Memory History Repo ---

type historyKey struct {
	transactionID string
	invoiceNumber int64
}

type inMemoryHistoryRepo struct {
	mu   sync.RWMutex
	rows map[historyKey]domain.HistoricalEntry
}

func newInMemoryHistoryRepo() *inMemoryHistoryRepo {
	return &inMemoryHistoryRepo{rows: make(map[historyKey]domain.HistoricalEntry)}
}

func (r *inMemoryHistoryRepo) CountByTransaction(_ context.Context, _ pgx.Tx, transactionID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for k := range r.rows {
		if k.transactionID == transactionID {
			n++
		}
	}
	return n, nil
}

func (r *inMemoryHistoryRepo) InsertIfAbsent(_ context.Context, _ pgx.Tx, entries []domain.HistoricalEntry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range entries {
		k := historyKey{e.TransactionID, e.InvoiceNumber}
		if _, exists := r.rows[k]; exists {
			continue
		}
		r.rows[k] = e
		n++
	}
	return n, nil
}

func (r *inMemoryHistoryRepo) UpdateStatus(_ context.Context, _ pgx.Tx, transactionID string, status domain.TransactionStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, e := range r.rows {
		if k.transactionID == transactionID && e.Status != status {
			e.Status = status
			r.rows[k] = e
			n++
		}
	}
	return n, nil
}

func (r *inMemoryHistoryRepo) ListByTransaction(_ context.Context, transactionID string) ([]domain.HistoricalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.HistoricalEntry
	for k, e := range r.rows {
		if k.transactionID == transactionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out, nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu   sync.RWMutex
	rows []domain.LedgerEntry
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) InsertBatch(_ context.Context, _ pgx.Tx, entries []domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, entries...)
	return nil
}

func (r *inMemoryLedgerRepo) ListByTransaction(_ context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LedgerEntry
	for _, e := range r.rows {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor hands out no-op transactions and records how many
// were open at the same time.
type inMemoryTransactor struct {
	open    atomic.Int32
	maxOpen atomic.Int32
}

func (t *inMemoryTransactor) Begin(_ context.Context) (pgx.Tx, error) {
	n := t.open.Add(1)
	for {
		cur := t.maxOpen.Load()
		if n <= cur || t.maxOpen.CompareAndSwap(cur, n) {
			break
		}
	}
	return &trackedTx{done: func() { t.open.Add(-1) }}, nil
}

type trackedTx struct {
	mockTx
	once sync.Once
	done func()
}

func (t *trackedTx) Commit(ctx context.Context) error {
	err := t.mockTx.Commit(ctx)
	t.once.Do(t.done)
	return err
}

func (t *trackedTx) Rollback(ctx context.Context) error {
	err := t.mockTx.Rollback(ctx)
	t.once.Do(t.done)
	return err
}

// --- Stub Gateway ---

type stubGateway struct {
	calls atomic.Int32
	tx    domain.Transaction
}

func (g *stubGateway) GetTransaction(_ context.Context, transactionID string) (*domain.Transaction, error) {
	g.calls.Add(1)
	tx := g.tx
	tx.ID = transactionID
	return &tx, nil
}
