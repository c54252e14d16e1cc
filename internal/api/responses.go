package api

import (
	"time"

	"github.com/serpinsight/analyzer/internal/domain"
)

// AnalyzeRequest asks for a stored scope to be re-analyzed and persisted.
type AnalyzeRequest struct {
	ProjectID string     `json:"project_id" binding:"required"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// Scope converts the request into a domain scope.
func (r AnalyzeRequest) Scope() domain.Scope {
	return domain.Scope{
		ProjectID: r.ProjectID,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
	}
}

// AnalyzeResponse summarizes one completed run; the full outputs are read
// back through the scope endpoints.
type AnalyzeResponse struct {
	ProjectID      string    `json:"project_id"`
	RecordCount    int       `json:"record_count"`
	DistinctQuery  int       `json:"distinct_queries"`
	DistinctPages  int       `json:"distinct_pages"`
	QueryClusters  int       `json:"query_clusters"`
	TopicClusters  int       `json:"topic_clusters"`
	EngineVersion  string    `json:"engine_version"`
	ProcessingMs   int64     `json:"processing_time_ms"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// PreviewRequest carries inline records for a what-if run that is never
// persisted.
type PreviewRequest struct {
	ProjectID string                     `json:"project_id" binding:"required"`
	Records   []domain.PerformanceRecord `json:"records" binding:"required,min=1,max=100000"`
}

// SyncRecordsRequest carries a full record snapshot for one project.
type SyncRecordsRequest struct {
	Records []domain.PerformanceRecord `json:"records" binding:"required,min=1,max=100000"`
}

// QualityRequest wraps the content quality analyzer input.
type QualityRequest struct {
	Content domain.ContentInput `json:"content" binding:"required"`
}

// IntentRequest carries a batch of keywords to classify.
type IntentRequest struct {
	Keywords []string `json:"keywords" binding:"required,min=1,max=500"`
}

// ReportingThresholds exposes the configured reporting cutoffs to
// downstream dashboard consumers. The engine never reads them.
type ReportingThresholds struct {
	QuickWinMinImpressions int     `json:"quick_win_min_impressions"`
	QuickWinMaxPosition    float64 `json:"quick_win_max_position"`
	MaxCannibalReports     int     `json:"max_cannibalization_reports"`
}

// IntentResponse returns the classified batch in input order.
type IntentResponse struct {
	Intents []domain.KeywordIntent `json:"intents"`
	Total   int                    `json:"total"`
}

func toAnalyzeResponse(result *domain.AnalysisResult) AnalyzeResponse {
	return AnalyzeResponse{
		ProjectID:     result.Scope.ProjectID,
		RecordCount:   result.RecordCount,
		DistinctQuery: result.DistinctQuery,
		DistinctPages: result.DistinctPages,
		QueryClusters: len(result.QueryClusters),
		TopicClusters: len(result.TopicClusters),
		EngineVersion: result.EngineVersion,
		ProcessingMs:  result.ProcessingMs,
		AnalyzedAt:    result.AnalyzedAt,
	}
}
