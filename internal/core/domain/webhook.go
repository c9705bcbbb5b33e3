package domain

import "time"

// EventTransactionUpdated is the only event type the gateway sends for payments.
const EventTransactionUpdated = "transaction.updated"

// WebhookEvent is the envelope the gateway posts to the webhook endpoint.
type WebhookEvent struct {
	Event       string         `json:"event"`
	Data        WebhookData    `json:"data"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	Timestamp   int64          `json:"timestamp"`
	Signature   EventSignature `json:"signature"`
	Environment string         `json:"environment"`
}

type WebhookData struct {
	Transaction Transaction `json:"transaction"`
}

// EventSignature lists the data properties covered by the checksum, in order.
type EventSignature struct {
	Checksum   string   `json:"checksum"`
	Properties []string `json:"properties"`
}
