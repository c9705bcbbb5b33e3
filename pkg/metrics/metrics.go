package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reconciler"

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests handled",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Webhook deliveries by processing branch",
	}, []string{
		"branch", // approved, declined, error, notification, rejected
	})

	ledgerRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_rows_written_total",
		Help:      "Rows appended to transfer_control",
	})

	confirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmations_total",
		Help:      "Confirmation requests by gateway status and outcome",
	}, []string{"status", "outcome"})

	historyRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_rows_total",
		Help:      "Historical rows inserted or updated",
	}, []string{
		"op", // inserted, updated
	})

	decodeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reference_decode_failures_total",
		Help:      "References that could not be decoded, by reason",
	}, []string{"reason"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Time to fetch a transaction from the payment gateway, retries included",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{
		"outcome", // ok, cached, error
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "downstream_notifications_total",
		Help:      "Notifications sent to the accounting system",
	}, []string{
		"kind",    // update, generate
		"outcome", // delivered, failed
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, route, status string, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordWebhookEvent(branch string) {
	webhookEventsTotal.WithLabelValues(branch).Inc()
}

func RecordLedgerRows(n int) {
	ledgerRowsTotal.Add(float64(n))
}

func RecordConfirmation(status, outcome string) {
	confirmationsTotal.WithLabelValues(status, outcome).Inc()
}

// RecordHistoryChanges counts rows touched by one confirmation.
func RecordHistoryChanges(inserted, updated int64) {
	if inserted > 0 {
		historyRowsTotal.WithLabelValues("inserted").Add(float64(inserted))
	}
	if updated > 0 {
		historyRowsTotal.WithLabelValues("updated").Add(float64(updated))
	}
}

func RecordDecodeFailure(reason string) {
	decodeFailuresTotal.WithLabelValues(reason).Inc()
}

func RecordGatewayRequest(outcome string, d time.Duration) {
	gatewayRequestDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func RecordNotification(kind, outcome string) {
	notificationsTotal.WithLabelValues(kind, outcome).Inc()
}
