package domain

import "time"

// AnalysisResult is the full engine output for one scope. Persisting it
// replaces whatever a prior run stored for the same scope.
type AnalysisResult struct {
	Scope          Scope           `json:"scope"`
	Pages          []PageAggregate `json:"pages"`
	QueryClusters  []QueryCluster  `json:"query_clusters"`
	TopicClusters  []TopicCluster  `json:"topic_clusters"`
	Intents        []KeywordIntent `json:"intents"`
	RecordCount    int             `json:"record_count"`
	DistinctQuery  int             `json:"distinct_queries"`
	DistinctPages  int             `json:"distinct_pages"`
	EngineVersion  string          `json:"engine_version"`
	ProcessingTime time.Duration   `json:"-"`
	ProcessingMs   int64           `json:"processing_time_ms"`
	AnalyzedAt     time.Time       `json:"analyzed_at"`
}
