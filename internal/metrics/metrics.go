// Package metrics holds the Prometheus collectors shared by the ledger,
// the sync client and the worker. A nil *Metrics is valid and records
// nothing, so callers never need to guard their calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "budgetdash"

// Metrics groups every collector the services record into.
type Metrics struct {
	ledgerOps          *prometheus.CounterVec
	ledgerDuration     *prometheus.HistogramVec
	spentWriteFailures prometheus.Counter
	syncReads          *prometheus.CounterVec
	syncSubmits        *prometheus.CounterVec
	eventsPublished    *prometheus.CounterVec
	workerRecomputes   *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	securityEvents     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Passing nil uses a fresh registry,
// which keeps tests independent of the global default registerer.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		ledgerOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Ledger store operations by outcome",
			},
			[]string{"operation", "status"},
		),
		ledgerDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_operation_duration_seconds",
				Help:      "Ledger store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		spentWriteFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_spent_write_failures_total",
				Help:      "Appends whose derived spent totals could not be persisted",
			},
		),
		syncReads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_reads_total",
				Help:      "Snapshot reads served by the sync client, by source",
			},
			[]string{"source"},
		),
		syncSubmits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_submits_total",
				Help:      "Expense submissions by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		eventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "ExpenseAppended events published, by outcome",
			},
			[]string{"status"},
		),
		workerRecomputes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_recomputes_total",
				Help:      "Spent total recomputations run by the worker, by outcome",
			},
			[]string{"status"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		securityEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_security_events_total",
				Help:      "Rate limit hits and suspicious requests",
			},
			[]string{"kind"},
		),
		gatherer: reg,
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveLedger records one ledger store operation.
func (m *Metrics) ObserveLedger(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, status(err)).Inc()
	m.ledgerDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// SpentWriteFailed counts an append whose totals were left stale.
func (m *Metrics) SpentWriteFailed() {
	if m == nil {
		return
	}
	m.spentWriteFailures.Inc()
}

// SyncRead counts a snapshot read served from source ("remote", "cache", "default").
func (m *Metrics) SyncRead(source string) {
	if m == nil {
		return
	}
	m.syncReads.WithLabelValues(source).Inc()
}

// SyncSubmit counts an expense submission.
func (m *Metrics) SyncSubmit(mode string, err error) {
	if m == nil {
		return
	}
	m.syncSubmits.WithLabelValues(mode, status(err)).Inc()
}

// EventPublished counts a publish attempt.
func (m *Metrics) EventPublished(err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(status(err)).Inc()
}

// WorkerRecompute counts a worker recomputation.
func (m *Metrics) WorkerRecompute(err error) {
	if m == nil {
		return
	}
	m.workerRecomputes.WithLabelValues(status(err)).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route string, code int, started time.Time) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
}

// SecurityEvent counts a rate limit hit ("rate_limit") or a suspicious
// request ("suspicious").
func (m *Metrics) SecurityEvent(kind string) {
	if m == nil {
		return
	}
	m.securityEvents.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
