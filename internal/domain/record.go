// Package domain defines the data model for the SERP analytics engine.
package domain

import (
	"strings"
	"time"
)

// PerformanceRecord is one row of search performance data: a query ranking
// a page on a given day. Records arrive already synced from the search
// data provider; the engine treats them as immutable input.
type PerformanceRecord struct {
	Query       string     `db:"query"       json:"query"`
	Page        string     `db:"page"        json:"page"`
	Date        *time.Time `db:"date"        json:"date,omitempty"`
	Clicks      int        `db:"clicks"      json:"clicks"`
	Impressions int        `db:"impressions" json:"impressions"`
	CTR         float64    `db:"ctr"         json:"ctr"`
	Position    float64    `db:"position"    json:"position"`
}

// Normalize returns a copy with the query lower-cased and malformed values
// clamped: negative clicks/impressions become 0, position is forced to ≥1.
// Clamping happens here, at the ingestion boundary, so the engine can
// assume well-formed input.
func (r PerformanceRecord) Normalize() PerformanceRecord {
	r.Query = strings.ToLower(strings.TrimSpace(r.Query))
	if r.Clicks < 0 {
		r.Clicks = 0
	}
	if r.Impressions < 0 {
		r.Impressions = 0
	}
	if r.Position < 1 {
		r.Position = 1
	}
	if r.CTR < 0 {
		r.CTR = 0
	}
	return r
}

// Scope identifies one analysis window: a project and a date range. Every
// run is a full recompute for its scope; outputs replace prior outputs.
type Scope struct {
	ProjectID string     `db:"project_id" json:"project_id"`
	StartDate *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate   *time.Time `db:"end_date"   json:"end_date,omitempty"`
}

// StaleScope is a scope whose records changed after its last analysis.
// ChangedAt is the most recent record sync for the project.
type StaleScope struct {
	Scope
	ChangedAt time.Time `db:"changed_at" json:"changed_at"`
}
