package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/core/ports/mocks"
	"payment-reconciler/internal/core/reference"
	"payment-reconciler/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type confirmationMocks struct {
	gateway     *mocks.MockGatewayClient
	historyRepo *mocks.MockHistoryRepository
	ledgerRepo  *mocks.MockLedgerRepository
	transactor  *mocks.MockDBTransactor
	locker      *mocks.MockTransactionLocker
	notifier    *mocks.MockNotificationService
}

func setupConfirmationService(t *testing.T) (*ConfirmationServiceImpl, *confirmationMocks) {
	ctrl := gomock.NewController(t)
	m := &confirmationMocks{
		gateway:     mocks.NewMockGatewayClient(ctrl),
		historyRepo: mocks.NewMockHistoryRepository(ctrl),
		ledgerRepo:  mocks.NewMockLedgerRepository(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		locker:      mocks.NewMockTransactionLocker(ctrl),
		notifier:    mocks.NewMockNotificationService(ctrl),
	}
	svc := NewConfirmationService(
		m.gateway,
		reference.NewDecoder(reference.DefaultSeriesPrefix),
		m.historyRepo,
		m.ledgerRepo,
		m.transactor,
		m.locker,
		NewDispatcher(""),
		m.notifier,
		newTestLogger(),
	)
	svc.now = fixedClock(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))
	return svc, m
}

func (m *confirmationMocks) expectLock() {
	m.locker.EXPECT().Acquire(gomock.Any(), testTxID).Return("lock-token", nil)
	m.locker.EXPECT().Release(gomock.Any(), testTxID, "lock-token").Return(nil)
}

func confirm(svc *ConfirmationServiceImpl) (*ports.ConfirmationResult, error) {
	return svc.Resolve(context.Background(), ports.ConfirmationRequest{TransactionID: testTxID, ClientIP: "10.0.0.7"})
}

func TestConfirmationService_Resolve_FirstCallInserts(t *testing.T) {
	svc, m := setupConfirmationService(t)
	tx := testTransaction(domain.TransactionStatusApproved)
	tx.PaymentMethod.Extra.BusinessAgreementCode = "12345"
	dbTx := &mockTx{}
	stored := []domain.HistoricalEntry{{TransactionID: testTxID, InvoiceNumber: 1001}, {TransactionID: testTxID, InvoiceNumber: 1002}}

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(tx, nil)
	m.expectLock()
	m.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	m.historyRepo.EXPECT().CountByTransaction(gomock.Any(), dbTx, testTxID).Return(int64(0), nil)
	m.historyRepo.EXPECT().
		InsertIfAbsent(gomock.Any(), dbTx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, entries []domain.HistoricalEntry) (int64, error) {
			require.Len(t, entries, 2)
			e := entries[0]
			assert.Equal(t, testTxID, e.TransactionID)
			assert.Equal(t, "900123", e.CustomerID)
			assert.Equal(t, int64(1001), e.InvoiceNumber)
			assert.True(t, decimal.NewFromInt(100000).Equal(e.InvoiceValue))
			assert.Equal(t, "VISA", e.PaymentMethod)
			assert.Equal(t, "10.0.0.7", e.ClientIP)
			assert.Equal(t, "12345", e.BusinessAgreementCode)
			assert.Equal(t, domain.TransactionStatusApproved, e.Status)
			assert.Equal(t, *tx.FinalizedAt, e.PaymentDate)
			assert.Equal(t, int64(1002), entries[1].InvoiceNumber)
			return int64(len(entries)), nil
		})
	m.historyRepo.EXPECT().UpdateStatus(gomock.Any(), dbTx, testTxID, domain.TransactionStatusApproved).Return(int64(0), nil)
	m.historyRepo.EXPECT().ListByTransaction(gomock.Any(), testTxID).Return(stored, nil)

	result, err := confirm(svc)
	require.NoError(t, err)
	assert.True(t, dbTx.committed)
	assert.Equal(t, ports.SourceHistory, result.Source)
	assert.Equal(t, stored, result.History)
	assert.Nil(t, result.Ledger)
	assert.Equal(t, int64(2), result.Inserted)
	assert.Equal(t, int64(0), result.Updated)
	assert.Equal(t, "12345", result.Metadata.BusinessAgreementCode)
	assert.Equal(t, testReference, result.Metadata.Reference)
	assert.Nil(t, result.Notification)
}

func TestConfirmationService_Resolve_SecondCallOnlyUpdates(t *testing.T) {
	svc, m := setupConfirmationService(t)
	tx := testTransaction(domain.TransactionStatusDeclined)
	dbTx := &mockTx{}
	ledger := []domain.LedgerEntry{{TransactionID: testTxID}}

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(tx, nil)
	m.expectLock()
	m.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	m.historyRepo.EXPECT().CountByTransaction(gomock.Any(), dbTx, testTxID).Return(int64(2), nil)
	m.historyRepo.EXPECT().UpdateStatus(gomock.Any(), dbTx, testTxID, domain.TransactionStatusDeclined).Return(int64(2), nil)
	m.ledgerRepo.EXPECT().ListByTransaction(gomock.Any(), testTxID).Return(ledger, nil)

	result, err := confirm(svc)
	require.NoError(t, err)
	assert.True(t, dbTx.committed)
	assert.Equal(t, ports.SourceLedger, result.Source)
	assert.Equal(t, ledger, result.Ledger)
	assert.Equal(t, int64(0), result.Inserted)
	assert.Equal(t, int64(2), result.Updated)
}

func TestConfirmationService_Resolve_PendingInsertsWithoutUpdate(t *testing.T) {
	svc, m := setupConfirmationService(t)
	tx := testTransaction(domain.TransactionStatusPending)
	dbTx := &mockTx{}

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(tx, nil)
	m.expectLock()
	m.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	m.historyRepo.EXPECT().CountByTransaction(gomock.Any(), dbTx, testTxID).Return(int64(0), nil)
	m.historyRepo.EXPECT().InsertIfAbsent(gomock.Any(), dbTx, gomock.Len(2)).Return(int64(2), nil)
	m.ledgerRepo.EXPECT().ListByTransaction(gomock.Any(), testTxID).Return(nil, nil)

	result, err := confirm(svc)
	require.NoError(t, err)
	assert.Equal(t, ports.SourceLedger, result.Source)
	assert.Equal(t, int64(2), result.Inserted)
	assert.Equal(t, int64(0), result.Updated)
}

func TestConfirmationService_Resolve_FlaggedDeclineNotifies(t *testing.T) {
	svc, m := setupConfirmationService(t)
	tx := testTransaction(domain.TransactionStatusDeclined)
	tx.Reference = "NIT-900123-FAV-FAC1001_100000_APP_EVA_CMPY_07"
	dbTx := &mockTx{}
	history := []domain.HistoricalEntry{{TransactionID: testTxID, InvoiceNumber: 1001, Status: domain.TransactionStatusDeclined}}
	outcome := &domain.NotificationOutcome{Response: "ok"}

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(tx, nil)
	m.expectLock()
	m.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	m.historyRepo.EXPECT().CountByTransaction(gomock.Any(), dbTx, testTxID).Return(int64(1), nil)
	m.historyRepo.EXPECT().UpdateStatus(gomock.Any(), dbTx, testTxID, domain.TransactionStatusDeclined).Return(int64(1), nil)
	m.ledgerRepo.EXPECT().ListByTransaction(gomock.Any(), testTxID).Return(nil, nil)
	m.historyRepo.EXPECT().ListByTransaction(gomock.Any(), testTxID).Return(history, nil)
	m.notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in ports.NotificationInput) *domain.NotificationOutcome {
			assert.Equal(t, history, in.History)
			assert.Len(t, in.Tokens, 1)
			return outcome
		})

	result, err := confirm(svc)
	require.NoError(t, err)
	assert.Same(t, outcome, result.Notification)
}

func TestConfirmationService_Resolve_FlaggedWithoutChangesDoesNotNotify(t *testing.T) {
	svc, m := setupConfirmationService(t)
	tx := testTransaction(domain.TransactionStatusApproved)
	tx.Reference = "NIT-900123-FAV-FAC1001_100000_APP_EVA_"
	dbTx := &mockTx{}

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(tx, nil)
	m.expectLock()
	m.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	m.historyRepo.EXPECT().CountByTransaction(gomock.Any(), dbTx, testTxID).Return(int64(1), nil)
	m.historyRepo.EXPECT().UpdateStatus(gomock.Any(), dbTx, testTxID, domain.TransactionStatusApproved).Return(int64(0), nil)
	m.historyRepo.EXPECT().ListByTransaction(gomock.Any(), testTxID).Return(nil, nil)

	result, err := confirm(svc)
	require.NoError(t, err)
	assert.Nil(t, result.Notification)
}

func TestConfirmationService_Resolve_EmptyID(t *testing.T) {
	svc, _ := setupConfirmationService(t)

	_, err := svc.Resolve(context.Background(), ports.ConfirmationRequest{TransactionID: " "})
	assertAppErrorCode(t, err, apperror.CodeValidation)
}

func TestConfirmationService_Resolve_GatewayError(t *testing.T) {
	svc, m := setupConfirmationService(t)

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(nil, errors.New("wompi returned 503"))

	_, err := confirm(svc)
	assertAppErrorCode(t, err, apperror.CodeGatewayUnavailable)
}

func TestConfirmationService_Resolve_UndecodableReference(t *testing.T) {
	svc, m := setupConfirmationService(t)
	tx := testTransaction(domain.TransactionStatusApproved)
	tx.Reference = "NIT-900123-FAV-"

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(tx, nil)

	_, err := confirm(svc)
	assertAppErrorCode(t, err, apperror.CodeDecode)
}

func TestConfirmationService_Resolve_LockTimeout(t *testing.T) {
	svc, m := setupConfirmationService(t)

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(testTransaction(domain.TransactionStatusApproved), nil)
	m.locker.EXPECT().Acquire(gomock.Any(), testTxID).Return("", fmt.Errorf("%w: %s", ports.ErrLockNotAcquired, testTxID))

	_, err := confirm(svc)
	assertAppErrorCode(t, err, apperror.CodeLockTimeout)
}

func TestConfirmationService_Resolve_LockStoreFailureIsPersistenceError(t *testing.T) {
	svc, m := setupConfirmationService(t)

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(testTransaction(domain.TransactionStatusApproved), nil)
	m.locker.EXPECT().Acquire(gomock.Any(), testTxID).Return("", errors.New("redis lock acquire: connection refused"))

	_, err := confirm(svc)
	assertAppErrorCode(t, err, apperror.CodePersistence)
}

func TestConfirmationService_Resolve_PersistenceFailureReleasesLock(t *testing.T) {
	svc, m := setupConfirmationService(t)
	dbTx := &mockTx{}

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(testTransaction(domain.TransactionStatusApproved), nil)
	m.expectLock()
	m.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	m.historyRepo.EXPECT().CountByTransaction(gomock.Any(), dbTx, testTxID).Return(int64(0), nil)
	m.historyRepo.EXPECT().InsertIfAbsent(gomock.Any(), dbTx, gomock.Any()).Return(int64(0), errors.New("unique violation"))

	_, err := confirm(svc)
	assertAppErrorCode(t, err, apperror.CodePersistence)
	assert.True(t, dbTx.rolledBack)
	assert.False(t, dbTx.committed)
}

func TestConfirmationService_Resolve_CommitFailure(t *testing.T) {
	svc, m := setupConfirmationService(t)
	dbTx := &mockTx{commitErr: errors.New("could not serialize access")}

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(testTransaction(domain.TransactionStatusDeclined), nil)
	m.expectLock()
	m.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	m.historyRepo.EXPECT().CountByTransaction(gomock.Any(), dbTx, testTxID).Return(int64(2), nil)
	m.historyRepo.EXPECT().UpdateStatus(gomock.Any(), dbTx, testTxID, domain.TransactionStatusDeclined).Return(int64(2), nil)

	_, err := confirm(svc)
	assertAppErrorCode(t, err, apperror.CodePersistence)
}

func TestConfirmationService_Resolve_HistoryListFailure(t *testing.T) {
	svc, m := setupConfirmationService(t)
	dbTx := &mockTx{}

	m.gateway.EXPECT().GetTransaction(gomock.Any(), testTxID).Return(testTransaction(domain.TransactionStatusApproved), nil)
	m.expectLock()
	m.transactor.EXPECT().Begin(gomock.Any()).Return(dbTx, nil)
	m.historyRepo.EXPECT().CountByTransaction(gomock.Any(), dbTx, testTxID).Return(int64(2), nil)
	m.historyRepo.EXPECT().UpdateStatus(gomock.Any(), dbTx, testTxID, domain.TransactionStatusApproved).Return(int64(2), nil)
	m.historyRepo.EXPECT().ListByTransaction(gomock.Any(), testTxID).Return(nil, errors.New("timeout"))

	_, err := confirm(svc)
	assertAppErrorCode(t, err, apperror.CodePersistence)
}
