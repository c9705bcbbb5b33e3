package ports

import (
	"context"
	"errors"
	"time"

	"payment-reconciler/internal/core/domain"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// --- Infrastructure Ports ---

// GatewayClient fetches the authoritative transaction from the payment gateway.
type GatewayClient interface {
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
}

// GatewayCache stores raw gateway responses for transactions in a final state.
type GatewayCache interface {
	Get(ctx context.Context, transactionID string) ([]byte, error) // nil when absent
	Set(ctx context.Context, transactionID string, payload []byte, ttl time.Duration) error
}

// DownstreamClient delivers a notification to EVA and returns the raw response body.
type DownstreamClient interface {
	Send(ctx context.Context, notification domain.Notification) (string, error)
}

// ErrLockNotAcquired is returned by TransactionLocker.Acquire when another
// holder kept the lock for the whole wait budget.
var ErrLockNotAcquired = errors.New("transaction lock not acquired")

// TransactionLocker serialises reconciliation of one transaction across instances.
type TransactionLocker interface {
	// Acquire blocks until the lock is held or ctx is done. The returned
	// token must be passed to Release.
	Acquire(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key, token string) error
}

// EventVerifier checks the checksum the gateway attaches to webhook events.
type EventVerifier interface {
	Verify(rawBody []byte) error
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles back-office JWT operations.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// --- Service Ports (Business Logic) ---

// WebhookService processes gateway push notifications.
type WebhookService interface {
	Process(ctx context.Context, req WebhookRequest) (*WebhookResult, error)
}

// WebhookRequest carries the parsed event and the body it was parsed from.
type WebhookRequest struct {
	Event   *domain.WebhookEvent
	RawBody []byte
}

// WebhookBranch is the processing branch chosen for a delivery.
type WebhookBranch string

const (
	BranchApproved     WebhookBranch = "approved"
	BranchDeclined     WebhookBranch = "declined"
	BranchError        WebhookBranch = "error"
	BranchNotification WebhookBranch = "notification"
)

type WebhookResult struct {
	TransactionID string
	Status        domain.TransactionStatus
	Branch        WebhookBranch
	LedgerRows    int
	Notification  *domain.NotificationOutcome
}

// ConfirmationService reconciles a transaction on client request.
type ConfirmationService interface {
	Resolve(ctx context.Context, req ConfirmationRequest) (*ConfirmationResult, error)
}

type ConfirmationRequest struct {
	TransactionID string
	ClientIP      string
}

// RowSource names the table the returned rows came from.
type RowSource string

const (
	SourceHistory RowSource = "history"
	SourceLedger  RowSource = "ledger"
)

type ConfirmationResult struct {
	TransactionID string
	Status        domain.TransactionStatus
	Metadata      domain.PaymentMetadata
	Source        RowSource
	History       []domain.HistoricalEntry
	Ledger        []domain.LedgerEntry
	Inserted      int64
	Updated       int64
	Notification  *domain.NotificationOutcome
}

// NotificationService builds and delivers EVA notifications. It never fails;
// delivery problems are reported inside the outcome.
type NotificationService interface {
	Notify(ctx context.Context, in NotificationInput) *domain.NotificationOutcome
}

type NotificationInput struct {
	Transaction *domain.Transaction
	Tokens      []domain.ReferenceToken
	History     []domain.HistoricalEntry
}

// AuthService authenticates back-office users.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// HistoryService exposes stored reconciliation rows to the back office.
type HistoryService interface {
	GetTransactionHistory(ctx context.Context, transactionID string) (*TransactionHistory, error)
}

type TransactionHistory struct {
	TransactionID string
	History       []domain.HistoricalEntry
	Ledger        []domain.LedgerEntry
}
