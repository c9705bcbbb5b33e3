package domain

import "encoding/json"

// NotificationKind selects the downstream endpoint.
type NotificationKind string

const (
	NotificationUpdate   NotificationKind = "update"
	NotificationGenerate NotificationKind = "generate"
)

// DepositTypeOther is the deposit tag EVA expects for gateway payments.
const DepositTypeOther = "OTRO"

// Notification is the payload sent to the downstream accounting system.
// Exactly two shapes exist: UpdateNotification and GenerateNotification.
type Notification interface {
	Kind() NotificationKind
	notification()
}

// UpdateNotification confirms a cash-collect payment that EVA already knows about.
type UpdateNotification struct {
	CompanyCode   string `json:"companyCode"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

func (UpdateNotification) Kind() NotificationKind { return NotificationUpdate }
func (UpdateNotification) notification()          {}

// GenerateNotification asks EVA to create the receipt for a payment.
// The pointer fields are always null and exist only to satisfy EVA's schema.
type GenerateNotification struct {
	CompanyCode      string                `json:"companyCode"`
	TransactionID    string                `json:"transactionId"`
	Status           string                `json:"status"`
	DepositType      string                `json:"depositType"`
	CustomerID       string                `json:"customerId"`
	EntryDate        string                `json:"entryDate"`
	EntryTime        string                `json:"entryTime"`
	PhoneNumber      string                `json:"phoneNumber"`
	Invoices         []NotificationInvoice `json:"invoices"`
	RegistrationCode string                `json:"registrationCode"`
	TerritoryCode    string                `json:"territoryCode"`
	BankCode         *string               `json:"bankCode"`
	CheckNumber      *string               `json:"checkNumber"`
	ConsignmentDate  *string               `json:"consignmentDate"`
	Observations     *string               `json:"observations"`
}

func (GenerateNotification) Kind() NotificationKind { return NotificationGenerate }
func (GenerateNotification) notification()          {}

// NotificationInvoice carries amounts as JSON numbers.
type NotificationInvoice struct {
	InvoiceNumber int64       `json:"invoiceNumber"`
	InvoiceValue  json.Number `json:"invoiceValue"`
	Discount      json.Number `json:"discount"`
}

// DownstreamStatus maps a gateway status onto EVA's vocabulary.
func DownstreamStatus(s TransactionStatus) string {
	switch s {
	case TransactionStatusApproved:
		return "AUTORIZADA"
	case TransactionStatusDeclined:
		return "RECHAZADA"
	default:
		return string(s)
	}
}

// NotificationOutcome is attached to webhook and confirmation responses.
// Error is set instead of failing the call.
type NotificationOutcome struct {
	Request  Notification `json:"evaRequest,omitempty"`
	Response string       `json:"evaResponse,omitempty"`
	Error    string       `json:"evaError,omitempty"`
}
