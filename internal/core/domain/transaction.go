package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the gateway-reported state of a transaction.
type TransactionStatus string

const (
	TransactionStatusApproved TransactionStatus = "APPROVED"
	TransactionStatusDeclined TransactionStatus = "DECLINED"
	TransactionStatusError    TransactionStatus = "ERROR"
	TransactionStatusPending  TransactionStatus = "PENDING"
	TransactionStatusVoided   TransactionStatus = "VOIDED"
)

// IsFinal reports whether the gateway will not move the transaction again.
func (s TransactionStatus) IsFinal() bool {
	return s != "" && s != TransactionStatusPending
}

// Transaction is the gateway's view of a payment. It is never mutated locally.
type Transaction struct {
	ID                string            `json:"id"`
	CreatedAt         *time.Time        `json:"created_at,omitempty"`
	FinalizedAt       *time.Time        `json:"finalized_at,omitempty"`
	AmountInCents     int64             `json:"amount_in_cents"`
	Reference         string            `json:"reference"`
	CustomerEmail     string            `json:"customer_email"`
	Currency          string            `json:"currency"`
	PaymentMethodType string            `json:"payment_method_type"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	Status            TransactionStatus `json:"status"`
	StatusMessage     string            `json:"status_message,omitempty"`
	CustomerData      CustomerData      `json:"customer_data"`
}

type PaymentMethod struct {
	Type        string             `json:"type"`
	Extra       PaymentMethodExtra `json:"extra"`
	PhoneNumber string             `json:"phone_number,omitempty"`
}

// PaymentMethodExtra keeps the fields of payment_method.extra that reconciliation reads.
type PaymentMethodExtra struct {
	Brand                      string `json:"brand,omitempty"`
	BusinessAgreementCode      string `json:"business_agreement_code,omitempty"`
	PaymentIntentionIdentifier string `json:"payment_intention_identifier,omitempty"`
}

type CustomerData struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
}

// MethodType returns the payment method type, preferring the top-level field.
func (t *Transaction) MethodType() string {
	if t.PaymentMethodType != "" {
		return t.PaymentMethodType
	}
	return t.PaymentMethod.Type
}

// FranchiseLabel is the label stored on ledger rows: the card brand when the
// gateway reports one, the method type otherwise.
func (t *Transaction) FranchiseLabel() string {
	if t.PaymentMethod.Extra.Brand != "" {
		return t.PaymentMethod.Extra.Brand
	}
	return t.MethodType()
}

// DefaultInvoiceValue is the amount used for invoices whose value is not encoded in the reference.
func (t *Transaction) DefaultInvoiceValue() decimal.Decimal {
	return decimal.NewFromInt(t.AmountInCents).Shift(-2)
}

// PaymentDate returns finalized_at, falling back to created_at and then to now.
func (t *Transaction) PaymentDate(now time.Time) time.Time {
	switch {
	case t.FinalizedAt != nil:
		return *t.FinalizedAt
	case t.CreatedAt != nil:
		return *t.CreatedAt
	default:
		return now
	}
}

// PhoneNumber returns the payer phone reported by the payment method or customer data.
func (t *Transaction) PhoneNumber() string {
	if t.PaymentMethod.PhoneNumber != "" {
		return t.PaymentMethod.PhoneNumber
	}
	return t.CustomerData.PhoneNumber
}

// PaymentMetadata is the subset of gateway data returned by a confirmation.
type PaymentMetadata struct {
	PaymentMethodType          string `json:"paymentMethodType"`
	BusinessAgreementCode      string `json:"businessAgreementCode,omitempty"`
	PaymentIntentionIdentifier string `json:"paymentIntentionIdentifier,omitempty"`
	AmountInCents              int64  `json:"amountInCents"`
	Reference                  string `json:"reference"`
}

// Metadata extracts the confirmation-facing payment metadata.
func (t *Transaction) Metadata() PaymentMetadata {
	return PaymentMetadata{
		PaymentMethodType:          t.MethodType(),
		BusinessAgreementCode:      t.PaymentMethod.Extra.BusinessAgreementCode,
		PaymentIntentionIdentifier: t.PaymentMethod.Extra.PaymentIntentionIdentifier,
		AmountInCents:              t.AmountInCents,
		Reference:                  t.Reference,
	}
}
