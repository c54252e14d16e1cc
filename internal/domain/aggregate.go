package domain

// QueryMetrics is a per-query sub-row inside a page aggregate.
type QueryMetrics struct {
	Query       string  `db:"query"       json:"query"`
	Clicks      int     `db:"clicks"      json:"clicks"`
	Impressions int     `db:"impressions" json:"impressions"`
	CTR         float64 `db:"ctr"         json:"ctr"`
	Position    float64 `db:"position"    json:"position"`
}

// PageAggregate rolls all records for one page into a single scored row.
// AvgCTR and AvgPosition are impression-weighted.
type PageAggregate struct {
	PageURL          string         `db:"page_url"          json:"page_url"`
	TotalClicks      int            `db:"total_clicks"      json:"total_clicks"`
	TotalImpressions int            `db:"total_impressions" json:"total_impressions"`
	AvgCTR           float64        `db:"avg_ctr"           json:"avg_ctr"`
	AvgPosition      float64        `db:"avg_position"      json:"avg_position"`
	PerformanceScore int            `db:"performance_score" json:"performance_score"` // 0-100
	Queries          []QueryMetrics `db:"-"                 json:"queries"`           // ordered by clicks desc
}

// PageEntry is one page's rollup inside a query group, feeding the
// cannibalization detector.
type PageEntry struct {
	URL         string  `json:"url"`
	Clicks      int     `json:"clicks"`
	Impressions int     `json:"impressions"`
	Position    float64 `json:"position"` // impression-weighted mean over the page's rows
}

// QueryGroup is all records for one normalized query, rolled up by page.
type QueryGroup struct {
	Query            string      `json:"query"`
	Pages            []PageEntry `json:"pages"`
	TotalClicks      int         `json:"total_clicks"`
	TotalImpressions int         `json:"total_impressions"`
}
