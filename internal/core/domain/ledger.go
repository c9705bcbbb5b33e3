package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is an append-only audit row written once per invoice per webhook delivery.
type LedgerEntry struct {
	ID            uuid.UUID         `json:"id"`
	TransactionID string            `json:"transactionId"`
	CustomerID    string            `json:"customerId"`
	PaymentDate   time.Time         `json:"paymentDate"`
	Status        TransactionStatus `json:"status"`
	InvoiceNumber int64             `json:"invoiceNumber"`
	InvoiceValue  decimal.Decimal   `json:"invoiceValue"`
	Discount      decimal.Decimal   `json:"discount"`
	PaymentMethod string            `json:"paymentMethod"`
	Reference     string            `json:"reference"`
	UserName      string            `json:"userName"`
	UserEmail     string            `json:"userEmail"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// HistoricalEntry is the reconciled row for one (transaction, invoice) pair.
// It is inserted once and afterwards only its status changes.
type HistoricalEntry struct {
	ID                         uuid.UUID         `json:"id"`
	TransactionID              string            `json:"transactionId"`
	CustomerID                 string            `json:"customerId"`
	PaymentDate                time.Time         `json:"paymentDate"`
	Status                     TransactionStatus `json:"status"`
	InvoiceNumber              int64             `json:"invoiceNumber"`
	InvoiceValue               decimal.Decimal   `json:"invoiceValue"`
	PaymentMethod              string            `json:"paymentMethod"`
	Reference                  string            `json:"reference"`
	UserName                   string            `json:"userName"`
	UserEmail                  string            `json:"userEmail"`
	ClientIP                   string            `json:"clientIp,omitempty"`
	BusinessAgreementCode      string            `json:"businessAgreementCode,omitempty"`
	PaymentIntentionIdentifier string            `json:"paymentIntentionIdentifier,omitempty"`
	CreatedAt                  time.Time         `json:"createdAt"`
	UpdatedAt                  time.Time         `json:"updatedAt"`
}
