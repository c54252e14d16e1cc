package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/serpinsight/analyzer/internal/domain"
	"github.com/serpinsight/analyzer/internal/logger"
)

// Metrics receives per-run measurements. Implemented by the telemetry
// provider; a nil Metrics disables recording.
type Metrics interface {
	RecordAnalysis(ctx context.Context, duration time.Duration, records, clusters int)
	RecordCannibalization(ctx context.Context, severity string)
	RecordIntent(ctx context.Context, intent string)
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Config holds engine configuration.
type Config struct {
	Version         string
	Cannibalization CannibalizationConfig
	Clusterer       ClustererConfig
}

// Engine orchestrates the full analysis pipeline for one scope.
type Engine struct {
	detector  *CannibalizationDetector
	clusterer *KeywordClusterer
	quality   *ContentQualityAnalyzer
	intent    *IntentClassifier
	metrics   Metrics
	logger    logger.Logger
	version   string
}

// New creates an engine with all analysis stages wired.
func New(log logger.Logger, metrics Metrics, cfg Config) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Engine{
		detector:  NewCannibalizationDetector(cfg.Cannibalization, log),
		clusterer: NewKeywordClusterer(cfg.Clusterer, log),
		quality:   NewContentQualityAnalyzer(log),
		intent:    NewIntentClassifier(log),
		metrics:   metrics,
		logger:    log,
		version:   cfg.Version,
	}
}

// Analyze runs the full pipeline over one scope's records: normalize,
// aggregate by page and by query, detect cannibalization, cluster
// keywords, classify intent per distinct query. The run is synchronous
// and deterministic; a started run always completes.
func (e *Engine) Analyze(ctx context.Context, scope domain.Scope, records []domain.PerformanceRecord) (*domain.AnalysisResult, error) {
	start := time.Now()

	if e.metrics != nil {
		var span trace.Span
		ctx, span = e.metrics.StartSpan(ctx, "engine.analyze",
			attribute.String("project_id", scope.ProjectID),
			attribute.Int("record_count", len(records)),
		)
		defer span.End()
	}

	e.logger.Info("starting analysis",
		logger.String("project_id", scope.ProjectID),
		logger.Int("record_count", len(records)),
	)

	normalized := make([]domain.PerformanceRecord, len(records))
	for i, r := range records {
		normalized[i] = r.Normalize()
	}

	pages := AggregatePages(normalized)
	groups := AggregateQueries(normalized)

	queryClusters := e.detector.Detect(groups)
	topicClusters := e.clusterer.Cluster(groups)

	queries := make([]string, len(groups))
	for i, g := range groups {
		queries[i] = g.Query
	}
	intents := e.intent.ClassifyAll(queries)

	elapsed := time.Since(start)
	result := &domain.AnalysisResult{
		Scope:          scope,
		Pages:          pages,
		QueryClusters:  queryClusters,
		TopicClusters:  topicClusters,
		Intents:        intents,
		RecordCount:    len(normalized),
		DistinctQuery:  len(groups),
		DistinctPages:  len(pages),
		EngineVersion:  e.version,
		ProcessingTime: elapsed,
		ProcessingMs:   elapsed.Milliseconds(),
		AnalyzedAt:     time.Now().UTC(),
	}

	if e.metrics != nil {
		e.metrics.RecordAnalysis(ctx, elapsed, result.RecordCount, len(queryClusters)+len(topicClusters))
		for _, c := range queryClusters {
			e.metrics.RecordCannibalization(ctx, string(c.Severity))
		}
		for _, k := range intents {
			e.metrics.RecordIntent(ctx, string(k.Intent))
		}
	}

	e.logger.Info("analysis complete",
		logger.String("project_id", scope.ProjectID),
		logger.Int("pages", len(pages)),
		logger.Int("query_clusters", len(queryClusters)),
		logger.Int("topic_clusters", len(topicClusters)),
		logger.Duration("duration", elapsed),
	)

	return result, nil
}

// AnalyzeContent scores a single text body. It is independent of the
// record pipeline because it consumes page content, not SERP rows.
func (e *Engine) AnalyzeContent(in domain.ContentInput) domain.ContentQualityReport {
	return e.quality.Analyze(in)
}

// ClassifyIntents classifies a batch of keywords without a full run.
func (e *Engine) ClassifyIntents(keywords []string) []domain.KeywordIntent {
	return e.intent.ClassifyAll(keywords)
}
