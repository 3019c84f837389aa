// Package metrics exposes Prometheus counters and histograms for analysis
// runs and the HTTP API. Each Manager owns a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Manager holds the metric collectors. A nil *Manager is valid and records
// nothing.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	runs             *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	rowsProcessed    *prometheus.CounterVec
	anomaliesFlagged *prometheus.CounterVec
	riskTiers        *prometheus.CounterVec
	commentFallbacks *prometheus.CounterVec
	commentCost      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
}

// NewManager builds a Manager with its own registry, including the Go
// runtime and process collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "hr_monitor",
		buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "analysis_runs_total",
		Help:      "Analysis runs by kind and outcome.",
	}, []string{"kind", "outcome"})

	m.runDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Wall time of an analysis run from upload to summary.",
		Buckets:   m.buckets,
	}, []string{"kind"})

	m.rowsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rows_processed_total",
		Help:      "Input rows scored or checked, by kind.",
	}, []string{"kind"})

	m.anomaliesFlagged = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "attendance_anomalies_total",
		Help:      "Flagged attendance records by rule. One record may count under several rules.",
	}, []string{"rule"})

	m.riskTiers = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "attrition_results_total",
		Help:      "Scored employees by risk tier.",
	}, []string{"tier"})

	m.commentFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "comment_fallbacks_total",
		Help:      "Comment generations that fell back to template text.",
	}, []string{"target"})

	m.commentCost = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "comment_cost_usd_total",
		Help:      "Estimated spend on generated comments in USD.",
	}, []string{"target"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	return m
}

// Registry returns the private registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun counts a finished run and observes its duration.
func (m *Manager) RecordRun(kind, outcome string, rows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(kind, outcome).Inc()
	m.runDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if rows > 0 {
		m.rowsProcessed.WithLabelValues(kind).Add(float64(rows))
	}
}

// RecordTiers adds per-tier result counts.
func (m *Manager) RecordTiers(high, medium, low int) {
	if m == nil {
		return
	}
	m.riskTiers.WithLabelValues("High").Add(float64(high))
	m.riskTiers.WithLabelValues("Medium").Add(float64(medium))
	m.riskTiers.WithLabelValues("Low").Add(float64(low))
}

// RecordAnomalies adds per-rule anomaly counts.
func (m *Manager) RecordAnomalies(zscore, long, streak int) {
	if m == nil {
		return
	}
	m.anomaliesFlagged.WithLabelValues("zscore").Add(float64(zscore))
	m.anomaliesFlagged.WithLabelValues("long_shift").Add(float64(long))
	m.anomaliesFlagged.WithLabelValues("streak").Add(float64(streak))
}

// RecordCommentFallback counts a template fallback for target.
func (m *Manager) RecordCommentFallback(target string) {
	if m == nil {
		return
	}
	m.commentFallbacks.WithLabelValues(target).Inc()
}

// RecordCommentCost adds the estimated spend of one generated comment.
func (m *Manager) RecordCommentCost(target string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.commentCost.WithLabelValues(target).Add(usd)
}

// RecordHTTPRequest counts a served request.
func (m *Manager) RecordHTTPRequest(route, method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
