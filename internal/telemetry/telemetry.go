// Package telemetry provides OpenTelemetry instrumentation for the analyzer
// service. It exports Prometheus metrics and provides tracing capabilities.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "analyzer"

// Metrics holds all analyzer Prometheus metrics
type Metrics struct {
	// Analysis run metrics
	AnalysesCompleted *prometheus.CounterVec
	AnalysesFailed    *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	RecordsPerRun     prometheus.Histogram
	ClustersPerRun    prometheus.Histogram

	// Cannibalization severity distribution (mild, moderate, severe)
	CannibalizationTotal *prometheus.CounterVec

	// Intent distribution (transactional, commercial, navigational, informational)
	IntentTotal *prometheus.CounterVec

	// Scheduler metrics
	ScopesPending  prometheus.Gauge
	SchedulerRuns  prometheus.Counter
	SchedulerLag   prometheus.Histogram
	ThrottleCount  prometheus.Counter
	RunsSkipped    prometheus.Counter

	// Persistence metrics
	ResultsReplaced prometheus.Counter
	StorageErrors   *prometheus.CounterVec
}

// Provider wraps telemetry providers
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewProvider initializes telemetry with Prometheus metrics
func NewProvider() *Provider {
	metrics := initMetrics()
	tracer := otel.Tracer(serviceName)

	return &Provider{
		Tracer:  tracer,
		Metrics: metrics,
	}
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initAnalysisMetrics(m)
	initDistributionMetrics(m)
	initSchedulerMetrics(m)
	initPersistenceMetrics(m)
	return m
}

func initAnalysisMetrics(m *Metrics) {
	m.AnalysesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_analyses_completed_total",
		Help: "Total analysis runs that completed",
	}, []string{"trigger"})

	m.AnalysesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_analyses_failed_total",
		Help: "Total analysis runs that failed",
	}, []string{"trigger", "error_code"})

	m.AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analyzer_analysis_duration_seconds",
		Help:    "Wall time of a full analysis run",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	})

	m.RecordsPerRun = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analyzer_records_per_run",
		Help:    "Performance records consumed by a single run",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000},
	})

	m.ClustersPerRun = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analyzer_clusters_per_run",
		Help:    "Query and topic clusters produced by a single run",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 200},
	})
}

func initDistributionMetrics(m *Metrics) {
	m.CannibalizationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_cannibalization_total",
		Help: "Cannibalization clusters found by severity (mild, moderate, severe)",
	}, []string{"severity"})

	m.IntentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_intent_total",
		Help: "Keywords classified by intent (transactional, commercial, navigational, informational)",
	}, []string{"intent"})
}

func initSchedulerMetrics(m *Metrics) {
	m.ScopesPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "analyzer_scopes_pending",
		Help: "Scopes with stale analysis waiting for a run",
	})

	m.SchedulerRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_scheduler_runs_total",
		Help: "Total scheduler poll cycles",
	})

	m.SchedulerLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analyzer_scheduler_lag_seconds",
		Help:    "Time between records changing and their scope being re-analyzed",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
	})

	m.ThrottleCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_throttle_count_total",
		Help: "Number of times the scheduler waited on its rate limiter",
	})

	m.RunsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_runs_skipped_total",
		Help: "Scheduler poll cycles that found no stale scopes to analyze",
	})
}

func initPersistenceMetrics(m *Metrics) {
	m.ResultsReplaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analyzer_results_replaced_total",
		Help: "Total scope result sets replaced in storage",
	})

	m.StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_storage_errors_total",
		Help: "Storage operation failures by operation",
	}, []string{"operation"})
}

// RecordAnalysis records metrics for one completed analysis run.
func (p *Provider) RecordAnalysis(ctx context.Context, duration time.Duration, records, clusters int) {
	p.Metrics.AnalysisDuration.Observe(duration.Seconds())
	p.Metrics.RecordsPerRun.Observe(float64(records))
	p.Metrics.ClustersPerRun.Observe(float64(clusters))
}

// RecordAnalysisCompleted increments the completion counter for a trigger
// ("api" or "scheduler").
func (p *Provider) RecordAnalysisCompleted(ctx context.Context, trigger string) {
	p.Metrics.AnalysesCompleted.WithLabelValues(trigger).Inc()
}

// RecordAnalysisFailure records a failed run with its error code.
func (p *Provider) RecordAnalysisFailure(ctx context.Context, trigger, errorCode string) {
	p.Metrics.AnalysesFailed.WithLabelValues(trigger, errorCode).Inc()
}

// RecordCannibalization increments the severity counter for one cluster.
func (p *Provider) RecordCannibalization(ctx context.Context, severity string) {
	if severity == "" {
		severity = "unknown"
	}
	p.Metrics.CannibalizationTotal.WithLabelValues(severity).Inc()
}

// RecordIntent increments the intent distribution counter.
func (p *Provider) RecordIntent(ctx context.Context, intent string) {
	if intent == "" {
		intent = "unknown"
	}
	p.Metrics.IntentTotal.WithLabelValues(intent).Inc()
}

// RecordSchedulerLag records how stale a scope's records were when its
// re-analysis started.
func (p *Provider) RecordSchedulerLag(ctx context.Context, changedAt time.Time) {
	lag := time.Since(changedAt)
	p.Metrics.SchedulerLag.Observe(lag.Seconds())
}

// RecordResultsReplaced records one successful full-replace persist.
func (p *Provider) RecordResultsReplaced(ctx context.Context) {
	p.Metrics.ResultsReplaced.Inc()
}

// RecordStorageError records a storage failure for the given operation.
func (p *Provider) RecordStorageError(ctx context.Context, operation string) {
	p.Metrics.StorageErrors.WithLabelValues(operation).Inc()
}

// SetScopesPending sets the current pending scope count.
func (p *Provider) SetScopesPending(count int) {
	p.Metrics.ScopesPending.Set(float64(count))
}

// IncrementSchedulerRuns increments the poll cycle counter.
func (p *Provider) IncrementSchedulerRuns() {
	p.Metrics.SchedulerRuns.Inc()
}

// IncrementThrottleCount increments the throttle counter.
func (p *Provider) IncrementThrottleCount() {
	p.Metrics.ThrottleCount.Inc()
}

// IncrementRunsSkipped increments the skipped-run counter.
func (p *Provider) IncrementRunsSkipped() {
	p.Metrics.RunsSkipped.Inc()
}

// StartSpan starts a new trace span.
// The caller is responsible for ending the span with span.End().
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, span
}
