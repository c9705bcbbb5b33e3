package service

import (
	"context"
	"io"
	"sync"
	"time"

	"payment-reconciler/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	testTxID      = "1234-1700000000-10000"
	testReference = "NIT-900123-FAV-FAC1001_100000_DP-0-FAC1002_50000_DP-0"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// mockTx implements pgx.Tx for testing and records how it ended.
type mockTx struct {
	pgx.Tx
	mu         sync.Mutex
	commitErr  error
	committed  bool
	rolledBack bool
}

func (m *mockTx) Commit(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testTransaction(status domain.TransactionStatus) *domain.Transaction {
	finalized := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	return &domain.Transaction{
		ID:                testTxID,
		FinalizedAt:       &finalized,
		AmountInCents:     15000000,
		Reference:         testReference,
		CustomerEmail:     "payer@example.com",
		Currency:          "COP",
		PaymentMethodType: "CARD",
		PaymentMethod: domain.PaymentMethod{
			Type:  "CARD",
			Extra: domain.PaymentMethodExtra{Brand: "VISA"},
		},
		Status:       status,
		CustomerData: domain.CustomerData{FullName: "Ana Payer", PhoneNumber: "3001234567"},
	}
}
