// Package metrics holds the Prometheus collectors of the credits server on a
// private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "credits"

type Metrics struct {
	registry *prometheus.Registry

	WebhookEvents            *prometheus.CounterVec
	LedgerEntries            *prometheus.CounterVec
	InsufficientCredits      prometheus.Counter
	TxRetries                *prometheus.CounterVec
	ReconcileDivergences     prometheus.Gauge
	ReconcileAccountsChecked prometheus.Gauge
	ReconcileLastRun         prometheus.Gauge
	HTTPRequestDuration      *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment webhook events by event type and settlement outcome.",
		}, []string{"type", "outcome"}),
		LedgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Committed ledger transactions by type.",
		}, []string{"type"}),
		InsufficientCredits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_credits_total",
			Help:      "Usage debits rejected for lack of credits.",
		}),
		TxRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_retries_total",
			Help:      "Database transactions re-run after a write conflict.",
		}, []string{"operation"}),
		ReconcileDivergences: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_divergences",
			Help:      "Accounts whose cached counters disagreed with the log in the last pass.",
		}),
		ReconcileAccountsChecked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_accounts_checked",
			Help:      "Accounts inspected by the last reconciliation pass.",
		}),
		ReconcileLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_last_run_timestamp_seconds",
			Help:      "Unix time of the last completed reconciliation pass.",
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}

	m.registry.MustRegister(
		m.WebhookEvents,
		m.LedgerEntries,
		m.InsufficientCredits,
		m.TxRetries,
		m.ReconcileDivergences,
		m.ReconcileAccountsChecked,
		m.ReconcileLastRun,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
