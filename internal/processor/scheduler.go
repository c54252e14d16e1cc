// Package processor runs the background re-analysis loop: it polls for
// projects whose records changed since their last analysis and re-runs the
// engine over them, one scope at a time.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serpinsight/analyzer/internal/domain"
)

const (
	// Default poll interval
	defaultPollIntervalSeconds = 60
)

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RecordsStore lists stale scopes and loads their records
type RecordsStore interface {
	ListChangedScopes(ctx context.Context) ([]domain.StaleScope, error)
	ListByScope(ctx context.Context, scope domain.Scope) ([]domain.PerformanceRecord, error)
}

// ResultsStore persists analysis outputs
type ResultsStore interface {
	ReplaceScope(ctx context.Context, result *domain.AnalysisResult) error
}

// Analyzer runs a full analysis for one scope
type Analyzer interface {
	Analyze(ctx context.Context, scope domain.Scope, records []domain.PerformanceRecord) (*domain.AnalysisResult, error)
}

// Metrics receives scheduler measurements. A nil Metrics disables
// recording.
type Metrics interface {
	SetScopesPending(count int)
	IncrementSchedulerRuns()
	IncrementRunsSkipped()
	IncrementThrottleCount()
	RecordSchedulerLag(ctx context.Context, changedAt time.Time)
	RecordAnalysisCompleted(ctx context.Context, trigger string)
	RecordAnalysisFailure(ctx context.Context, trigger, errorCode string)
}

// Trigger label for scheduler-initiated runs.
const triggerScheduler = "scheduler"

// Failure codes for scheduler-initiated runs.
const (
	errCodeLoadRecords = "load_records"
	errCodeAnalysis    = "analysis"
	errCodePersist     = "persist"
)

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	PollInterval  time.Duration
	RunsPerSecond int
	Burst         int
}

// Scheduler re-analyzes stale scopes on a fixed interval. Engine runs are
// serialized: one scope at a time, and a started run always completes.
type Scheduler struct {
	records  RecordsStore
	results  ResultsStore
	analyzer Analyzer
	metrics  Metrics
	limiter  *RateLimiter
	logger   Logger

	pollInterval time.Duration
	running      bool
	stopChan     chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(
	records RecordsStore,
	results ResultsStore,
	analyzer Analyzer,
	metrics Metrics,
	logger Logger,
	config SchedulerConfig,
) *Scheduler {
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollIntervalSeconds * time.Second
	}

	return &Scheduler{
		records:      records,
		results:      results,
		analyzer:     analyzer,
		metrics:      metrics,
		limiter:      NewRateLimiter(config.RunsPerSecond, config.Burst, logger),
		logger:       logger,
		pollInterval: config.PollInterval,
		stopChan:     make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	if s.running {
		return errors.New("scheduler is already running")
	}

	s.running = true
	s.logger.Info("Scheduler starting", "poll_interval", s.pollInterval)

	go s.run(ctx)

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}

	s.logger.Info("Scheduler stopping")
	close(s.stopChan)
	s.running = false
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return s.running
}

// run is the main polling loop
func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// Process immediately on start
	if err := s.processDue(ctx); err != nil {
		s.logger.Error("Failed to process stale scopes on startup", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			if err := s.processDue(ctx); err != nil {
				s.logger.Error("Failed to process stale scopes", "error", err)
			}
		}
	}
}

// processDue re-analyzes every scope whose records changed since its last
// analysis. One failing scope does not stop the rest of the batch.
func (s *Scheduler) processDue(ctx context.Context) error {
	if s.metrics != nil {
		s.metrics.IncrementSchedulerRuns()
	}

	scopes, err := s.records.ListChangedScopes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stale scopes: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SetScopesPending(len(scopes))
	}

	if len(scopes) == 0 {
		s.logger.Debug("No stale scopes found")
		if s.metrics != nil {
			s.metrics.IncrementRunsSkipped()
		}
		return nil
	}

	s.logger.Info("Found stale scopes", "count", len(scopes))

	for _, stale := range scopes {
		if s.metrics != nil && !s.limiter.Ready() {
			s.metrics.IncrementThrottleCount()
		}
		if err = s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter interrupted: %w", err)
		}
		if s.metrics != nil {
			s.metrics.RecordSchedulerLag(ctx, stale.ChangedAt)
		}
		if err = s.analyzeScope(ctx, stale.Scope); err != nil {
			s.logger.Error("Scope re-analysis failed",
				"project_id", stale.ProjectID,
				"error", err,
			)
		}
	}

	if s.metrics != nil {
		s.metrics.SetScopesPending(0)
	}

	return nil
}

// analyzeScope runs and persists a single scope's analysis
func (s *Scheduler) analyzeScope(ctx context.Context, scope domain.Scope) error {
	records, err := s.records.ListByScope(ctx, scope)
	if err != nil {
		s.recordFailure(ctx, errCodeLoadRecords)
		return fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) == 0 {
		s.logger.Debug("Scope has no records, skipping", "project_id", scope.ProjectID)
		return nil
	}

	result, err := s.analyzer.Analyze(ctx, scope, records)
	if err != nil {
		s.recordFailure(ctx, errCodeAnalysis)
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err = s.results.ReplaceScope(ctx, result); err != nil {
		s.recordFailure(ctx, errCodePersist)
		return fmt.Errorf("failed to persist results: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordAnalysisCompleted(ctx, triggerScheduler)
	}

	s.logger.Info("Scope re-analyzed",
		"project_id", scope.ProjectID,
		"records", result.RecordCount,
		"query_clusters", len(result.QueryClusters),
		"topic_clusters", len(result.TopicClusters),
		"duration_ms", result.ProcessingMs,
	)

	return nil
}

func (s *Scheduler) recordFailure(ctx context.Context, code string) {
	if s.metrics != nil {
		s.metrics.RecordAnalysisFailure(ctx, triggerScheduler, code)
	}
}
