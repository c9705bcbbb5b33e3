package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // slim images ship without zoneinfo

	"payment-reconciler/config"
	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/internal/core/reference"
	"payment-reconciler/pkg/metrics"

	"github.com/rs/zerolog"
)

const (
	entryDateLayout = "2006-01-02"
	entryTimeLayout = "15:04:05"
)

// NotificationServiceImpl implements ports.NotificationService.
type NotificationServiceImpl struct {
	client        ports.DownstreamClient
	collectMethod string
	loc           *time.Location
	now           func() time.Time
	log           zerolog.Logger
}

func NewNotificationService(client ports.DownstreamClient, cfg config.DownstreamConfig, log zerolog.Logger) (*NotificationServiceImpl, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("loading downstream timezone %q: %w", cfg.Timezone, err)
		}
	}
	return &NotificationServiceImpl{
		client:        client,
		collectMethod: cfg.CollectMethod,
		loc:           loc,
		now:           time.Now,
		log:           log,
	}, nil
}

// Build selects the payload shape by payment method type and fills it from
// the transaction, its reference markers and the reconciled invoices.
func (s *NotificationServiceImpl) Build(in ports.NotificationInput) domain.Notification {
	tx := in.Transaction
	ref := tx.Reference
	status := domain.DownstreamStatus(tx.Status)
	company := reference.Extract(ref, reference.MarkerCompany)

	if s.collectMethod != "" && strings.EqualFold(tx.MethodType(), s.collectMethod) {
		return domain.UpdateNotification{
			CompanyCode:   company,
			TransactionID: tx.ID,
			Status:        status,
		}
	}

	now := s.now().In(s.loc)
	phone := reference.Extract(ref, reference.MarkerPhone)
	if phone == "" {
		phone = tx.PhoneNumber()
	}

	return domain.GenerateNotification{
		CompanyCode:      company,
		TransactionID:    tx.ID,
		Status:           status,
		DepositType:      domain.DepositTypeOther,
		CustomerID:       reference.CustomerID(reference.StripPartialPayment(ref)),
		EntryDate:        now.Format(entryDateLayout),
		EntryTime:        now.Format(entryTimeLayout),
		PhoneNumber:      phone,
		Invoices:         notificationInvoices(in),
		RegistrationCode: reference.Extract(ref, reference.MarkerRegistration),
		TerritoryCode:    reference.Extract(ref, reference.MarkerTerritory),
	}
}

// Invoices come from the reconciled rows; before any exist the decoded
// tokens stand in.
func notificationInvoices(in ports.NotificationInput) []domain.NotificationInvoice {
	zero := json.Number("0")
	if len(in.History) > 0 {
		out := make([]domain.NotificationInvoice, 0, len(in.History))
		for _, h := range in.History {
			out = append(out, domain.NotificationInvoice{
				InvoiceNumber: h.InvoiceNumber,
				InvoiceValue:  json.Number(h.InvoiceValue.String()),
				Discount:      zero,
			})
		}
		return out
	}

	out := make([]domain.NotificationInvoice, 0, len(in.Tokens))
	for _, t := range in.Tokens {
		out = append(out, domain.NotificationInvoice{
			InvoiceNumber: t.InvoiceNumber,
			InvoiceValue:  json.Number(t.InvoiceValue.String()),
			Discount:      zero,
		})
	}
	return out
}

// Notify builds and sends the notification. Failures end up in the outcome.
func (s *NotificationServiceImpl) Notify(ctx context.Context, in ports.NotificationInput) *domain.NotificationOutcome {
	n := s.Build(in)
	kind := string(n.Kind())
	log := s.log.With().
		Str("transaction_id", in.Transaction.ID).
		Str("kind", kind).
		Logger()

	body, err := s.client.Send(ctx, n)
	outcome := &domain.NotificationOutcome{Request: n, Response: body}
	if err != nil {
		outcome.Error = err.Error()
		metrics.RecordNotification(kind, "failed")
		log.Warn().Err(err).Msg("downstream notification failed")
		return outcome
	}

	metrics.RecordNotification(kind, "delivered")
	log.Info().Msg("downstream notification delivered")
	return outcome
}
