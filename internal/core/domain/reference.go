package domain

import "github.com/shopspring/decimal"

// ReferenceToken is one invoice decoded from a payment reference.
type ReferenceToken struct {
	Raw           string          `json:"raw"`
	InvoiceNumber int64           `json:"invoiceNumber"`
	InvoiceValue  decimal.Decimal `json:"invoiceValue"`
	Discount      decimal.Decimal `json:"discount"`
}
