package domain

// Severity buckets a cannibalization score.
type Severity string

// Severity levels, from least to most urgent.
const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// QueryCluster describes one query ranking on multiple competing pages of
// the same site. A cluster needs at least two distinct pages and a minimum
// of combined impressions; queries below that never produce one.
type QueryCluster struct {
	Query               string      `db:"query"                 json:"query"`
	Pages               []PageEntry `db:"-"                     json:"pages"`
	WeightedAvgPosition float64     `db:"weighted_avg_position" json:"weighted_avg_position"`
	Variance            float64     `db:"variance"              json:"variance"`
	Score               float64     `db:"score"                 json:"cannibalization_score"`
	Severity            Severity    `db:"severity"              json:"severity"`
	PrimaryPage         string      `db:"primary_page"          json:"primary_page"`
	SupportingPages     []string    `db:"-"                     json:"supporting_pages"` // composite desc
	KeywordDifficulty   int         `db:"keyword_difficulty"    json:"keyword_difficulty"`
	TrafficGainEstimate int         `db:"traffic_gain_estimate" json:"traffic_gain_estimate"`
}

// TopicCluster groups queries that share vocabulary. Clusters always have
// at least two members.
type TopicCluster struct {
	Name             string   `db:"name"              json:"cluster_name"`
	Keywords         []string `db:"-"                 json:"keywords"`
	TotalClicks      int      `db:"total_clicks"      json:"total_clicks"`
	TotalImpressions int      `db:"total_impressions" json:"total_impressions"`
	AvgPosition      float64  `db:"avg_position"      json:"avg_position"`
	TopicScore       float64  `db:"topic_score"       json:"topic_score"`
}
