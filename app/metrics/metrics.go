package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "passes"

const (
	OutcomeIssued        = "issued"
	OutcomeAlreadyIssued = "already_issued"
	OutcomeNotSuccessful = "not_successful"
	OutcomeNotFound      = "not_found"
	OutcomeError         = "error"

	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	reconcileTotal     *prometheus.CounterVec
	reconcileDuration  *prometheus.HistogramVec
	passesIssued       *prometheus.CounterVec
	webhookDeliveries  *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
}

func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		reconcileTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_total",
				Help:      "Reconciliation attempts by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		reconcileDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconcile_duration_seconds",
				Help:      "Duration of the shared reconcile procedure",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		passesIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "issued_total",
				Help:      "Passes issued by pass type",
			},
			[]string{"pass_type"},
		),
		webhookDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Gateway webhook deliveries by outcome",
			},
			[]string{"status"},
		),
		notificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Pass notifications by channel and status",
			},
			[]string{"channel", "status"},
		),
	}
}

func (m *Metrics) ObserveReconcile(source, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(source, outcome).Inc()
	m.reconcileDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

func (m *Metrics) PassIssued(passType string) {
	if m == nil {
		return
	}
	m.passesIssued.WithLabelValues(passType).Inc()
}

func (m *Metrics) WebhookDelivery(status string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(status).Inc()
}

func (m *Metrics) Notification(channel, status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(channel, status).Inc()
}
