package telemetry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serpinsight/analyzer/internal/api"
	"github.com/serpinsight/analyzer/internal/database"
	"github.com/serpinsight/analyzer/internal/engine"
	"github.com/serpinsight/analyzer/internal/processor"
	"github.com/serpinsight/analyzer/internal/telemetry"
)

// Provider must satisfy every consumer-side metrics interface.
var (
	_ engine.Metrics    = (*telemetry.Provider)(nil)
	_ api.Metrics       = (*telemetry.Provider)(nil)
	_ processor.Metrics = (*telemetry.Provider)(nil)
	_ database.Metrics  = (*telemetry.Provider)(nil)
)

// providerOnce ensures we only create one Provider per test run to avoid
// duplicate Prometheus metric registration errors from promauto's global registry
var (
	testProvider *telemetry.Provider
	providerOnce sync.Once
)

func getTestProvider(t *testing.T) *telemetry.Provider {
	t.Helper()
	providerOnce.Do(func() {
		testProvider = telemetry.NewProvider()
	})
	return testProvider
}

func TestNewProvider(t *testing.T) {
	provider := getTestProvider(t)
	if provider == nil {
		t.Fatal("expected non-nil provider")
	}
	if provider.Tracer == nil {
		t.Error("expected non-nil tracer")
	}
	if provider.Metrics == nil {
		t.Error("expected non-nil metrics")
	}
}

func TestRecordAnalysis(t *testing.T) {
	provider := getTestProvider(t)
	ctx := context.Background()

	// Should not panic
	provider.RecordAnalysis(ctx, 250*time.Millisecond, 5000, 12)
	provider.RecordAnalysisCompleted(ctx, "api")
	provider.RecordAnalysisFailure(ctx, "scheduler", "storage")
}

func TestRecordDistributions(t *testing.T) {
	provider := getTestProvider(t)
	ctx := context.Background()

	// Should not panic
	provider.RecordCannibalization(ctx, "severe")
	provider.RecordCannibalization(ctx, "")
	provider.RecordIntent(ctx, "transactional")
	provider.RecordIntent(ctx, "")
}

func TestSchedulerMetrics(t *testing.T) {
	provider := getTestProvider(t)
	ctx := context.Background()

	// Should not panic
	provider.SetScopesPending(3)
	provider.IncrementSchedulerRuns()
	provider.IncrementThrottleCount()
	provider.IncrementRunsSkipped()
	provider.RecordSchedulerLag(ctx, time.Now().Add(-time.Minute))
}

func TestPersistenceMetrics(t *testing.T) {
	provider := getTestProvider(t)
	ctx := context.Background()

	// Should not panic
	provider.RecordResultsReplaced(ctx)
	provider.RecordStorageError(ctx, "replace_scope")
}

func TestHandler(t *testing.T) {
	provider := getTestProvider(t)
	if provider.Handler() == nil {
		t.Error("expected non-nil metrics handler")
	}
}
