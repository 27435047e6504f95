package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook outcomes. Labels only ever take these values and the registered
// provider names, never caller supplied text.
const (
	OutcomeRejected   = "rejected"
	OutcomePing       = "ping"
	OutcomeMismatched = "mismatched"
	OutcomeMatched    = "matched"
)

// ProviderUnknown labels deliveries whose header convention was not detected
const ProviderUnknown = "unknown"

var (
	// WebhooksTotal tracks handled webhook deliveries by response status
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Total number of webhook deliveries by provider, outcome and response status",
		},
		[]string{"provider", "outcome", "status_code"},
	)

	// WebhookDuration tracks end to end handling time of a delivery
	WebhookDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_duration_seconds",
			Help:    "Duration of webhook handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// BuildsTriggered tracks build trigger attempts by outcome
	BuildsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "builds_triggered_total",
			Help: "Total number of build trigger attempts by project and outcome",
		},
		[]string{"project", "outcome"},
	)

	// CallbacksTotal tracks status callbacks by reported status
	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callbacks_total",
			Help: "Total number of status callbacks by build status and HTTP status",
		},
		[]string{"build_status", "status_code"},
	)

	// CallbackDuration tracks callback POST duration
	CallbackDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "callback_duration_seconds",
			Help:    "Duration of status callback requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"build_status"},
	)

	// SignatureFailures tracks rejected signatures
	SignatureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_signature_failures_total",
			Help: "Total number of webhook deliveries rejected for an invalid signature",
		},
	)
)

// RecordWebhook records a handled delivery
func RecordWebhook(provider, outcome string, statusCode int, duration float64) {
	WebhooksTotal.WithLabelValues(provider, outcome, fmt.Sprintf("%d", statusCode)).Inc()
	WebhookDuration.Observe(duration)
}

// RecordBuildTriggered records a build trigger attempt
func RecordBuildTriggered(project string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	BuildsTriggered.WithLabelValues(project, outcome).Inc()
}

// RecordCallback records a callback attempt. A status code of zero marks a
// transport failure.
func RecordCallback(buildStatus string, statusCode int, duration float64) {
	code := fmt.Sprintf("%d", statusCode)
	if statusCode == 0 {
		code = "error"
	}
	CallbacksTotal.WithLabelValues(buildStatus, code).Inc()
	CallbackDuration.WithLabelValues(buildStatus).Observe(duration)
}

// RecordSignatureFailure records a rejected signature
func RecordSignatureFailure() {
	SignatureFailures.Inc()
}
