package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

// Metrics owns a private Prometheus registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	opTotal    *prometheus.CounterVec
	opLatency  *prometheus.HistogramVec
	contention *prometheus.CounterVec

	reconcileRuns     *prometheus.CounterVec
	reconcileFamilies *prometheus.CounterVec
	reconcileVersions *prometheus.CounterVec
	reconcileLatency  prometheus.Histogram
	reconcileLastOK   prometheus.Gauge

	workerTicks *prometheus.CounterVec
}

// Init returns nil when metrics are disabled so callers can pass the result around unconditionally.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	m := New()
	if log != nil {
		log.Info("prometheus metrics enabled")
	}
	return m
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "briefs_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "briefs_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "briefs_api_inflight_requests",
			Help: "API requests currently being served.",
		}),
		opTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "briefs_version_operations_total",
			Help: "Version lifecycle operations by operation/result.",
		}, []string{"op", "result"}),
		opLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "briefs_version_operation_duration_seconds",
			Help:    "Version lifecycle operation latency in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"op"}),
		contention: f.NewCounterVec(prometheus.CounterOpts{
			Name: "briefs_family_lock_contention_total",
			Help: "Operations that gave up waiting for a family lock.",
		}, []string{"op"}),
		reconcileRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "briefs_reconcile_runs_total",
			Help: "Reconciliation runs by status and mode.",
		}, []string{"status", "mode"}),
		reconcileFamilies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "briefs_reconcile_families_total",
			Help: "Families seen by reconciliation, by outcome.",
		}, []string{"outcome"}),
		reconcileVersions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "briefs_reconcile_versions_total",
			Help: "Active flag changes written by reconciliation.",
		}, []string{"action"}),
		reconcileLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "briefs_reconcile_duration_seconds",
			Help:    "Reconciliation run duration in seconds.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 300},
		}),
		reconcileLastOK: f.NewGauge(prometheus.GaugeOpts{
			Name: "briefs_reconcile_last_success_timestamp_seconds",
			Help: "Unix time of the last reconciliation run that finished without a fatal error.",
		}),
		workerTicks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "briefs_worker_ticks_total",
			Help: "Background worker iterations by worker/status.",
		}, []string{"worker", "status"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveOperation records one service operation; the result label is the error kind.
func (m *Metrics) ObserveOperation(op string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	m.opTotal.WithLabelValues(op, versioning.Kind(err)).Inc()
	m.opLatency.WithLabelValues(op).Observe(dur.Seconds())
	if errors.Is(err, versioning.ErrContention) {
		m.contention.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) ObserveReconcile(sum *versioning.Summary, err error, dur time.Duration) {
	if m == nil {
		return
	}
	mode := "apply"
	if sum != nil && sum.DryRun {
		mode = "dry_run"
	}
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case sum != nil && sum.FamiliesSkipped > 0:
		status = "partial"
	}
	m.reconcileRuns.WithLabelValues(status, mode).Inc()
	m.reconcileLatency.Observe(dur.Seconds())
	if err != nil || sum == nil {
		return
	}
	m.reconcileLastOK.SetToCurrentTime()
	m.reconcileFamilies.WithLabelValues("scanned").Add(float64(sum.FamiliesScanned))
	m.reconcileFamilies.WithLabelValues("skipped").Add(float64(sum.FamiliesSkipped))
	m.reconcileFamilies.WithLabelValues("unpublished").Add(float64(sum.FamiliesUnpublished))
	m.reconcileFamilies.WithLabelValues("dangling").Add(float64(sum.FamiliesDangling))
	if sum.DryRun {
		return
	}
	m.reconcileFamilies.WithLabelValues("repaired").Add(float64(sum.FamiliesRepaired))
	m.reconcileVersions.WithLabelValues("activated").Add(float64(sum.VersionsActivated))
	m.reconcileVersions.WithLabelValues("deactivated").Add(float64(sum.VersionsDeactivated))
}

func (m *Metrics) IncWorkerTick(worker, status string) {
	if m == nil {
		return
	}
	m.workerTicks.WithLabelValues(worker, status).Inc()
}
