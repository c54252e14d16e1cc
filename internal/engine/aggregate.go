package engine

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/serpinsight/analyzer/internal/domain"
)

// pageAccum accumulates one page's rows during the aggregation fold.
type pageAccum struct {
	url         string
	clicks      int
	impressions int
	posSum      float64 // position weighted by impressions
	posPlainSum float64
	rows        int
	queries     map[string]*queryRowAccum
}

type queryRowAccum struct {
	clicks      int
	impressions int
	posSum      float64
	posPlainSum float64
	rows        int
}

// weightedPosition resolves the impression-weighted mean position,
// falling back to the plain mean when every row had zero impressions.
func weightedPosition(posSum, posPlainSum float64, impressions, rows int) float64 {
	if impressions > 0 {
		return posSum / float64(impressions)
	}
	if rows > 0 {
		return posPlainSum / float64(rows)
	}
	return 0
}

// AggregatePages folds normalized records into per-page aggregates with
// performance scores. Output is ordered by total clicks descending, ties by
// URL, so repeated runs over the same snapshot are byte-identical.
func AggregatePages(records []domain.PerformanceRecord) []domain.PageAggregate {
	pages := make(map[string]*pageAccum, len(records))

	for _, r := range records {
		p, ok := pages[r.Page]
		if !ok {
			p = &pageAccum{url: r.Page, queries: make(map[string]*queryRowAccum)}
			pages[r.Page] = p
		}
		p.clicks += r.Clicks
		p.impressions += r.Impressions
		p.posSum += r.Position * float64(r.Impressions)
		p.posPlainSum += r.Position
		p.rows++

		q, ok := p.queries[r.Query]
		if !ok {
			q = &queryRowAccum{}
			p.queries[r.Query] = q
		}
		q.clicks += r.Clicks
		q.impressions += r.Impressions
		q.posSum += r.Position * float64(r.Impressions)
		q.posPlainSum += r.Position
		q.rows++
	}

	out := make([]domain.PageAggregate, 0, len(pages))
	for _, p := range pages {
		agg := domain.PageAggregate{
			PageURL:          p.url,
			TotalClicks:      p.clicks,
			TotalImpressions: p.impressions,
			AvgPosition:      weightedPosition(p.posSum, p.posPlainSum, p.impressions, p.rows),
		}
		if p.impressions > 0 {
			agg.AvgCTR = float64(p.clicks) / float64(p.impressions)
		}
		agg.PerformanceScore = PagePerformanceScore(p.clicks, p.impressions, agg.AvgCTR, agg.AvgPosition)

		agg.Queries = make([]domain.QueryMetrics, 0, len(p.queries))
		for query, q := range p.queries {
			m := domain.QueryMetrics{
				Query:       query,
				Clicks:      q.clicks,
				Impressions: q.impressions,
				Position:    weightedPosition(q.posSum, q.posPlainSum, q.impressions, q.rows),
			}
			if q.impressions > 0 {
				m.CTR = float64(q.clicks) / float64(q.impressions)
			}
			agg.Queries = append(agg.Queries, m)
		}
		sort.Slice(agg.Queries, func(i, j int) bool {
			if agg.Queries[i].Clicks != agg.Queries[j].Clicks {
				return agg.Queries[i].Clicks > agg.Queries[j].Clicks
			}
			return agg.Queries[i].Query < agg.Queries[j].Query
		})

		out = append(out, agg)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalClicks != out[j].TotalClicks {
			return out[i].TotalClicks > out[j].TotalClicks
		}
		return out[i].PageURL < out[j].PageURL
	})

	return out
}

// AggregateQueries folds normalized records into per-query groups with
// per-page rollups. Each page's position is the impression-weighted mean of
// that page's rows for the query. Output is ordered by total impressions
// descending, ties by query.
func AggregateQueries(records []domain.PerformanceRecord) []domain.QueryGroup {
	type groupAccum struct {
		clicks      int
		impressions int
		pages       map[string]*queryRowAccum
		pageOrder   []string
	}

	groups := make(map[string]*groupAccum, len(records))
	var queryOrder []string

	for _, r := range records {
		g, ok := groups[r.Query]
		if !ok {
			g = &groupAccum{pages: make(map[string]*queryRowAccum)}
			groups[r.Query] = g
			queryOrder = append(queryOrder, r.Query)
		}
		g.clicks += r.Clicks
		g.impressions += r.Impressions

		p, ok := g.pages[r.Page]
		if !ok {
			p = &queryRowAccum{}
			g.pages[r.Page] = p
			g.pageOrder = append(g.pageOrder, r.Page)
		}
		p.clicks += r.Clicks
		p.impressions += r.Impressions
		p.posSum += r.Position * float64(r.Impressions)
		p.posPlainSum += r.Position
		p.rows++
	}

	out := make([]domain.QueryGroup, 0, len(groups))
	for _, query := range queryOrder {
		g := groups[query]
		qg := domain.QueryGroup{
			Query:            query,
			TotalClicks:      g.clicks,
			TotalImpressions: g.impressions,
			Pages:            make([]domain.PageEntry, 0, len(g.pages)),
		}
		for _, url := range g.pageOrder {
			p := g.pages[url]
			qg.Pages = append(qg.Pages, domain.PageEntry{
				URL:         url,
				Clicks:      p.clicks,
				Impressions: p.impressions,
				Position:    weightedPosition(p.posSum, p.posPlainSum, p.impressions, p.rows),
			})
		}
		out = append(out, qg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalImpressions != out[j].TotalImpressions {
			return out[i].TotalImpressions > out[j].TotalImpressions
		}
		return out[i].Query < out[j].Query
	})

	return out
}

// groupPositionStats returns the impression-weighted mean position across a
// group's pages and the weighted variance around it. Pages with zero
// impressions fall back to uniform weights.
func groupPositionStats(pages []domain.PageEntry) (mean, variance float64) {
	if len(pages) == 0 {
		return 0, 0
	}

	positions := make([]float64, len(pages))
	weights := make([]float64, len(pages))
	totalImpr := 0
	for i, p := range pages {
		positions[i] = p.Position
		weights[i] = float64(p.Impressions)
		totalImpr += p.Impressions
	}
	if totalImpr == 0 {
		for i := range weights {
			weights[i] = 1
		}
	}

	mean = stat.Mean(positions, weights)
	variance = stat.Moment(2, positions, weights)
	return mean, variance
}
