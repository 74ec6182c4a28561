// Package metrics exposes the application-level prometheus instruments.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Metrics holds the domain instruments. A nil *Metrics is a no-op so
// services can be constructed without a registry in tests.
type Metrics struct {
	consumptionWrites *prometheus.CounterVec

	billGenerateTotal   *prometheus.CounterVec
	billGenerateLatency *prometheus.HistogramVec

	webhookEvents *prometheus.CounterVec

	reconciliationRuns   *prometheus.CounterVec
	reconciliationIssues *prometheus.CounterVec

	schedulerJobLatency *prometheus.HistogramVec
}

// New registers the instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		consumptionWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dairyos_consumption_writes_total",
				Help: "Total consumption ledger writes by outcome",
			},
			[]string{"outcome"},
		),
		billGenerateTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dairyos_bill_generate_total",
				Help: "Total bill generation attempts by result",
			},
			[]string{"result"},
		),
		billGenerateLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dairyos_bill_generate_latency_seconds",
				Help:    "Bill generation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dairyos_webhook_events_total",
				Help: "Total payment webhook deliveries by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		reconciliationRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dairyos_reconciliation_runs_total",
				Help: "Total reconciliation runs by result",
			},
			[]string{"result"},
		),
		reconciliationIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dairyos_reconciliation_issues_total",
				Help: "Total reconciliation issues by type",
			},
			[]string{"type"},
		),
		schedulerJobLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dairyos_scheduler_job_latency_seconds",
				Help:    "Scheduler job latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job", "result"},
		),
	}
}

// RecordConsumptionWrite increments ledger write counts.
func (m *Metrics) RecordConsumptionWrite(outcome string) {
	if m == nil {
		return
	}
	m.consumptionWrites.WithLabelValues(normalize(outcome)).Inc()
}

// ObserveBillGenerate records a generation attempt and its latency.
func (m *Metrics) ObserveBillGenerate(result string, duration time.Duration) {
	if m == nil {
		return
	}
	result = normalize(result)
	m.billGenerateTotal.WithLabelValues(result).Inc()
	m.billGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordWebhookEvent increments webhook delivery counts.
func (m *Metrics) RecordWebhookEvent(provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalize(provider), normalize(outcome)).Inc()
}

// RecordReconciliationRun increments reconciliation run counts.
func (m *Metrics) RecordReconciliationRun(result string) {
	if m == nil {
		return
	}
	m.reconciliationRuns.WithLabelValues(normalize(result)).Inc()
}

// RecordReconciliationIssue increments issue counts by type.
func (m *Metrics) RecordReconciliationIssue(issueType string) {
	if m == nil {
		return
	}
	m.reconciliationIssues.WithLabelValues(normalize(issueType)).Inc()
}

// ObserveSchedulerJob records a scheduler job run.
func (m *Metrics) ObserveSchedulerJob(job, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.schedulerJobLatency.WithLabelValues(normalize(job), normalize(result)).Observe(duration.Seconds())
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

// Exported result constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
