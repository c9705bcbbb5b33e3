package service

import (
	"context"
	"errors"
	"testing"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports/mocks"
	"payment-reconciler/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestHistoryService_GetTransactionHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	historyRepo := mocks.NewMockHistoryRepository(ctrl)
	ledgerRepo := mocks.NewMockLedgerRepository(ctrl)
	svc := NewHistoryService(historyRepo, ledgerRepo)

	history := []domain.HistoricalEntry{{TransactionID: "tx-1", InvoiceNumber: 1001}}
	ledger := []domain.LedgerEntry{{TransactionID: "tx-1", InvoiceNumber: 1001}, {TransactionID: "tx-1", InvoiceNumber: 1001}}

	historyRepo.EXPECT().ListByTransaction(gomock.Any(), "tx-1").Return(history, nil)
	ledgerRepo.EXPECT().ListByTransaction(gomock.Any(), "tx-1").Return(ledger, nil)

	got, err := svc.GetTransactionHistory(context.Background(), " tx-1 ")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", got.TransactionID)
	assert.Len(t, got.History, 1)
	assert.Len(t, got.Ledger, 2)
}

func TestHistoryService_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	historyRepo := mocks.NewMockHistoryRepository(ctrl)
	ledgerRepo := mocks.NewMockLedgerRepository(ctrl)
	svc := NewHistoryService(historyRepo, ledgerRepo)

	historyRepo.EXPECT().ListByTransaction(gomock.Any(), "missing").Return(nil, nil)
	ledgerRepo.EXPECT().ListByTransaction(gomock.Any(), "missing").Return(nil, nil)

	_, err := svc.GetTransactionHistory(context.Background(), "missing")
	assertAppErrorCode(t, err, apperror.CodeNotFound)
}

func TestHistoryService_EmptyID(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewHistoryService(mocks.NewMockHistoryRepository(ctrl), mocks.NewMockLedgerRepository(ctrl))

	_, err := svc.GetTransactionHistory(context.Background(), "")
	assertAppErrorCode(t, err, apperror.CodeValidation)
}

func TestHistoryService_RepositoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	historyRepo := mocks.NewMockHistoryRepository(ctrl)
	svc := NewHistoryService(historyRepo, mocks.NewMockLedgerRepository(ctrl))

	historyRepo.EXPECT().ListByTransaction(gomock.Any(), "tx-1").Return(nil, errors.New("db error"))

	_, err := svc.GetTransactionHistory(context.Background(), "tx-1")
	assertAppErrorCode(t, err, apperror.CodePersistence)
}
