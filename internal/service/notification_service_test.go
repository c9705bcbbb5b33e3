package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"payment-reconciler/config"
	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/core/ports/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const flaggedReference = "NIT-900123-FAV-FAC1001_100000_APP_EVA_CMPY_07_REG_55_TERI_9_PHONE_3119998877"

var testDownstreamConfig = config.DownstreamConfig{
	UpdateURL:     "http://eva.local/update",
	GenerateURL:   "http://eva.local/generate",
	CollectMethod: "BANCOLOMBIA_COLLECT",
	Timezone:      "America/Bogota",
}

func setupNotificationService(t *testing.T) (*NotificationServiceImpl, *mocks.MockDownstreamClient) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockDownstreamClient(ctrl)
	svc, err := NewNotificationService(client, testDownstreamConfig, newTestLogger())
	require.NoError(t, err)
	svc.now = fixedClock(time.Date(2024, 3, 5, 20, 30, 0, 0, time.UTC))
	return svc, client
}

func flaggedTransaction(status domain.TransactionStatus) *domain.Transaction {
	tx := testTransaction(status)
	tx.Reference = flaggedReference
	return tx
}

func TestNotificationService_Build_UpdateShape(t *testing.T) {
	svc, _ := setupNotificationService(t)
	tx := flaggedTransaction(domain.TransactionStatusApproved)
	tx.PaymentMethodType = "bancolombia_collect"

	n := svc.Build(ports.NotificationInput{Transaction: tx})

	update, ok := n.(domain.UpdateNotification)
	require.True(t, ok, "expected update notification, got %T", n)
	assert.Equal(t, domain.NotificationUpdate, n.Kind())
	assert.Equal(t, "07", update.CompanyCode)
	assert.Equal(t, testTxID, update.TransactionID)
	assert.Equal(t, "AUTORIZADA", update.Status)
}

func TestNotificationService_Build_GenerateShape(t *testing.T) {
	svc, _ := setupNotificationService(t)
	tx := flaggedTransaction(domain.TransactionStatusDeclined)

	n := svc.Build(ports.NotificationInput{
		Transaction: tx,
		History: []domain.HistoricalEntry{
			{InvoiceNumber: 1001, InvoiceValue: decimal.RequireFromString("100000.50")},
			{InvoiceNumber: 1002, InvoiceValue: decimal.NewFromInt(50000)},
		},
		Tokens: []domain.ReferenceToken{{InvoiceNumber: 9, InvoiceValue: decimal.NewFromInt(1)}},
	})

	gen, ok := n.(domain.GenerateNotification)
	require.True(t, ok, "expected generate notification, got %T", n)
	assert.Equal(t, "07", gen.CompanyCode)
	assert.Equal(t, testTxID, gen.TransactionID)
	assert.Equal(t, "RECHAZADA", gen.Status)
	assert.Equal(t, domain.DepositTypeOther, gen.DepositType)
	assert.Equal(t, "900123", gen.CustomerID)
	assert.Equal(t, "2024-03-05", gen.EntryDate)
	assert.Equal(t, "15:30:00", gen.EntryTime)
	assert.Equal(t, "3119998877", gen.PhoneNumber)
	assert.Equal(t, "55", gen.RegistrationCode)
	assert.Equal(t, "9", gen.TerritoryCode)

	require.Len(t, gen.Invoices, 2)
	assert.Equal(t, int64(1001), gen.Invoices[0].InvoiceNumber)
	assert.Equal(t, json.Number("100000.5"), gen.Invoices[0].InvoiceValue)
	assert.Equal(t, json.Number("0"), gen.Invoices[0].Discount)
	assert.Equal(t, json.Number("50000"), gen.Invoices[1].InvoiceValue)
}

func TestNotificationService_Build_FallsBackToTokensAndPayerPhone(t *testing.T) {
	svc, _ := setupNotificationService(t)
	tx := testTransaction(domain.TransactionStatusApproved)
	tx.Reference = "NIT-900123-ABONO-01-02-2024_10-30-FAV-FAC1001_100000_APP_EVA_"

	n := svc.Build(ports.NotificationInput{
		Transaction: tx,
		Tokens: []domain.ReferenceToken{
			{InvoiceNumber: 1001, InvoiceValue: decimal.NewFromInt(100000), Discount: decimal.NewFromInt(500)},
		},
	})

	gen := n.(domain.GenerateNotification)
	assert.Equal(t, "", gen.CompanyCode)
	assert.Equal(t, "900123", gen.CustomerID)
	assert.Equal(t, "3001234567", gen.PhoneNumber)
	require.Len(t, gen.Invoices, 1)
	assert.Equal(t, json.Number("100000"), gen.Invoices[0].InvoiceValue)
	assert.Equal(t, json.Number("0"), gen.Invoices[0].Discount)
}

func TestNotificationService_Build_ReservedFieldsSerializeAsNull(t *testing.T) {
	svc, _ := setupNotificationService(t)

	raw, err := json.Marshal(svc.Build(ports.NotificationInput{Transaction: flaggedTransaction(domain.TransactionStatusApproved)}))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Contains(t, out, "bankCode")
	assert.Nil(t, out["bankCode"])
	assert.Nil(t, out["observations"])
	assert.Equal(t, []interface{}{}, out["invoices"])
}

func TestNotificationService_Notify_Delivered(t *testing.T) {
	svc, client := setupNotificationService(t)
	tx := flaggedTransaction(domain.TransactionStatusApproved)

	client.EXPECT().
		Send(gomock.Any(), gomock.AssignableToTypeOf(domain.GenerateNotification{})).
		Return(`{"ok":true}`, nil)

	outcome := svc.Notify(context.Background(), ports.NotificationInput{Transaction: tx})
	require.NotNil(t, outcome)
	assert.Equal(t, `{"ok":true}`, outcome.Response)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, domain.NotificationGenerate, outcome.Request.Kind())
}

func TestNotificationService_Notify_FailureIsCaptured(t *testing.T) {
	svc, client := setupNotificationService(t)
	tx := flaggedTransaction(domain.TransactionStatusApproved)
	tx.PaymentMethodType = "BANCOLOMBIA_COLLECT"

	client.EXPECT().
		Send(gomock.Any(), gomock.AssignableToTypeOf(domain.UpdateNotification{})).
		Return(`{"error":"down"}`, errors.New("downstream returned 503"))

	outcome := svc.Notify(context.Background(), ports.NotificationInput{Transaction: tx})
	require.NotNil(t, outcome)
	assert.Equal(t, "downstream returned 503", outcome.Error)
	assert.Equal(t, `{"error":"down"}`, outcome.Response)
	assert.Equal(t, domain.NotificationUpdate, outcome.Request.Kind())
}

func TestNewNotificationService_InvalidTimezone(t *testing.T) {
	cfg := testDownstreamConfig
	cfg.Timezone = "Mars/Olympus_Mons"

	_, err := NewNotificationService(nil, cfg, newTestLogger())
	assert.Error(t, err)
}

func TestNewNotificationService_EmptyTimezoneIsUTC(t *testing.T) {
	cfg := testDownstreamConfig
	cfg.Timezone = ""

	svc, err := NewNotificationService(nil, cfg, newTestLogger())
	require.NoError(t, err)
	svc.now = fixedClock(time.Date(2024, 3, 5, 20, 30, 0, 0, time.UTC))

	gen := svc.Build(ports.NotificationInput{Transaction: testTransaction(domain.TransactionStatusApproved)}).(domain.GenerateNotification)
	assert.Equal(t, "20:30:00", gen.EntryTime)
}
