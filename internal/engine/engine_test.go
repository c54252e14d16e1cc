package engine

import (
	"context"
	"reflect"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/serpinsight/analyzer/internal/domain"
)

type recordingMetrics struct {
	calls      int
	records    int
	clusters   int
	severities []string
	intents    []string
	spans      []string
}

func (m *recordingMetrics) RecordAnalysis(_ context.Context, _ time.Duration, records, clusters int) {
	m.calls++
	m.records = records
	m.clusters = clusters
}

func (m *recordingMetrics) RecordCannibalization(_ context.Context, severity string) {
	m.severities = append(m.severities, severity)
}

func (m *recordingMetrics) RecordIntent(_ context.Context, intent string) {
	m.intents = append(m.intents, intent)
}

func (m *recordingMetrics) StartSpan(ctx context.Context, name string, _ ...attribute.KeyValue) (context.Context, trace.Span) {
	m.spans = append(m.spans, name)
	return ctx, trace.SpanFromContext(ctx)
}

func sampleRecords() []domain.PerformanceRecord {
	return []domain.PerformanceRecord{
		{Query: "Running Shoes", Page: "https://example.com/shoes", Clicks: 40, Impressions: 800, Position: 3},
		{Query: "running shoes", Page: "https://example.com/sneakers", Clicks: 10, Impressions: 400, Position: 8},
		{Query: "trail shoes", Page: "https://example.com/trail", Clicks: 20, Impressions: 500, Position: 4},
	}
}

func TestEngine_Analyze(t *testing.T) {
	e := New(nil, nil, Config{Version: "1.2.0"})

	result, err := e.Analyze(context.Background(), domain.Scope{ProjectID: "proj-1"}, sampleRecords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RecordCount != 3 {
		t.Errorf("RecordCount = %d, want 3", result.RecordCount)
	}
	// Normalization folds "Running Shoes" into "running shoes".
	if result.DistinctQuery != 2 {
		t.Errorf("DistinctQuery = %d, want 2", result.DistinctQuery)
	}
	if result.DistinctPages != 3 {
		t.Errorf("DistinctPages = %d, want 3", result.DistinctPages)
	}
	if result.EngineVersion != "1.2.0" {
		t.Errorf("EngineVersion = %s, want 1.2.0", result.EngineVersion)
	}
	if len(result.Intents) != result.DistinctQuery {
		t.Errorf("got %d intents for %d queries", len(result.Intents), result.DistinctQuery)
	}
	if result.AnalyzedAt.IsZero() {
		t.Error("AnalyzedAt not set")
	}
	if result.ProcessingMs < 0 {
		t.Errorf("ProcessingMs = %d, want >= 0", result.ProcessingMs)
	}
}

func TestEngine_Analyze_DetectsCannibalization(t *testing.T) {
	e := New(nil, nil, Config{})

	result, err := e.Analyze(context.Background(), domain.Scope{ProjectID: "proj-1"}, sampleRecords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "running shoes" ranks two pages with 1200 combined impressions.
	if len(result.QueryClusters) != 1 {
		t.Fatalf("expected 1 query cluster, got %d", len(result.QueryClusters))
	}
	if result.QueryClusters[0].Query != "running shoes" {
		t.Errorf("cluster query = %s, want running shoes", result.QueryClusters[0].Query)
	}
	if result.QueryClusters[0].PrimaryPage != "https://example.com/shoes" {
		t.Errorf("primary page = %s, want /shoes", result.QueryClusters[0].PrimaryPage)
	}
}

func TestEngine_Analyze_EmptyRecords(t *testing.T) {
	e := New(nil, nil, Config{})

	result, err := e.Analyze(context.Background(), domain.Scope{ProjectID: "proj-1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RecordCount != 0 || result.DistinctQuery != 0 || result.DistinctPages != 0 {
		t.Errorf("empty input produced counts %d/%d/%d, want zeros",
			result.RecordCount, result.DistinctQuery, result.DistinctPages)
	}
	if len(result.QueryClusters) != 0 || len(result.TopicClusters) != 0 {
		t.Error("empty input produced clusters")
	}
}

func TestEngine_Analyze_Deterministic(t *testing.T) {
	e := New(nil, nil, Config{Version: "1.0.0"})
	scope := domain.Scope{ProjectID: "proj-1"}

	first, err := e.Analyze(context.Background(), scope, sampleRecords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Analyze(context.Background(), scope, sampleRecords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first.Pages, second.Pages) {
		t.Error("page aggregates differ between runs")
	}
	if !reflect.DeepEqual(first.QueryClusters, second.QueryClusters) {
		t.Error("query clusters differ between runs")
	}
	if !reflect.DeepEqual(first.TopicClusters, second.TopicClusters) {
		t.Error("topic clusters differ between runs")
	}
	if !reflect.DeepEqual(first.Intents, second.Intents) {
		t.Error("intents differ between runs")
	}
}

func TestEngine_Analyze_RecordsMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	e := New(nil, metrics, Config{})

	_, err := e.Analyze(context.Background(), domain.Scope{ProjectID: "proj-1"}, sampleRecords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if metrics.calls != 1 {
		t.Errorf("metrics recorded %d times, want 1", metrics.calls)
	}
	if metrics.records != 3 {
		t.Errorf("metrics records = %d, want 3", metrics.records)
	}
	// One cannibalization cluster ("running shoes" over two pages).
	if len(metrics.severities) != 1 {
		t.Errorf("recorded %d severities, want 1", len(metrics.severities))
	}
	// One intent per distinct query.
	if len(metrics.intents) != 2 {
		t.Errorf("recorded %d intents, want 2", len(metrics.intents))
	}
	if len(metrics.spans) != 1 || metrics.spans[0] != "engine.analyze" {
		t.Errorf("spans = %v, want [engine.analyze]", metrics.spans)
	}
}

func TestEngine_AnalyzeContent(t *testing.T) {
	e := New(nil, nil, Config{})

	report := e.AnalyzeContent(domain.ContentInput{Text: "short piece of text"})

	if report.WordCount != 4 {
		t.Errorf("WordCount = %d, want 4", report.WordCount)
	}
	if report.OverallScore < 0 || report.OverallScore > 100 {
		t.Errorf("OverallScore = %v, outside [0,100]", report.OverallScore)
	}
}

func TestEngine_ClassifyIntents(t *testing.T) {
	e := New(nil, nil, Config{})

	got := e.ClassifyIntents([]string{"buy shoes", "how to run"})

	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Intent != domain.IntentTransactional {
		t.Errorf("buy shoes = %s, want transactional", got[0].Intent)
	}
}
