package engine

import (
	"errors"
	"math"
	"sort"

	"github.com/serpinsight/analyzer/internal/domain"
	"github.com/serpinsight/analyzer/internal/logger"
)

// ErrNoPages is returned when a selection requires at least one page.
var ErrNoPages = errors.New("empty page group")

// Cannibalization scoring constants.
const (
	defaultMinGroupImpressions = 50
	minPagesPerCluster         = 2

	varianceScoreDivisor = 10.0
	severityMildCeil     = 5.0
	severityModerateCeil = 10.0

	imprCompositeWeight  = 0.5
	clickCompositeWeight = 0.7
	posCompositeWeight   = 0.6

	difficultyImpressionScale = 10000.0
	difficultyDamping         = 0.5

	consolidatedPositionFactor = 0.6
)

// CannibalizationConfig holds detector settings.
type CannibalizationConfig struct {
	// MinImpressions is the minimum combined impressions a query group
	// needs before it can produce a cluster.
	MinImpressions int
}

// CannibalizationDetector finds queries where several pages of the same
// site compete for the same ranking.
type CannibalizationDetector struct {
	config CannibalizationConfig
	logger logger.Logger
}

// NewCannibalizationDetector creates a detector with the given config.
// Zero-value config fields fall back to defaults.
func NewCannibalizationDetector(cfg CannibalizationConfig, log logger.Logger) *CannibalizationDetector {
	if cfg.MinImpressions <= 0 {
		cfg.MinImpressions = defaultMinGroupImpressions
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CannibalizationDetector{config: cfg, logger: log}
}

// Detect builds cannibalization clusters from per-query groups. Groups with
// fewer than two distinct pages, or with combined impressions below the
// configured minimum, never produce a cluster. Output is ordered by score
// descending, ties by query.
func (d *CannibalizationDetector) Detect(groups []domain.QueryGroup) []domain.QueryCluster {
	clusters := make([]domain.QueryCluster, 0)

	for _, g := range groups {
		if len(g.Pages) < minPagesPerCluster || g.TotalImpressions < d.config.MinImpressions {
			continue
		}
		clusters = append(clusters, d.buildCluster(g))
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Score != clusters[j].Score {
			return clusters[i].Score > clusters[j].Score
		}
		return clusters[i].Query < clusters[j].Query
	})

	d.logger.Debug("cannibalization detection complete",
		logger.Int("groups", len(groups)),
		logger.Int("clusters", len(clusters)),
	)

	return clusters
}

func (d *CannibalizationDetector) buildCluster(g domain.QueryGroup) domain.QueryCluster {
	mean, variance := groupPositionStats(g.Pages)

	score := float64(len(g.Pages)-1) * (1 + variance/varianceScoreDivisor)

	primary, supporting, err := SelectPrimaryPage(g.Pages)
	if err != nil {
		// Unreachable: groups always carry >=2 pages here.
		primary = ""
		supporting = nil
	}

	return domain.QueryCluster{
		Query:               g.Query,
		Pages:               g.Pages,
		WeightedAvgPosition: mean,
		Variance:            variance,
		Score:               score,
		Severity:            severityFor(score),
		PrimaryPage:         primary,
		SupportingPages:     supporting,
		KeywordDifficulty:   keywordDifficulty(g.TotalImpressions),
		TrafficGainEstimate: consolidationGain(g.TotalImpressions, mean),
	}
}

func severityFor(score float64) domain.Severity {
	switch {
	case score < severityMildCeil:
		return domain.SeverityMild
	case score < severityModerateCeil:
		return domain.SeverityModerate
	default:
		return domain.SeveritySevere
	}
}

// SelectPrimaryPage picks the consolidation target for a page group. Each
// page's impressions and clicks are normalized against the group maxima and
// its position against the group minimum, then combined into a composite;
// the highest composite wins and the rest come back ordered by descending
// composite. Ties break on the lexicographically smaller URL. An empty
// group is a caller error and returns ErrNoPages.
func SelectPrimaryPage(pages []domain.PageEntry) (primary string, supporting []string, err error) {
	if len(pages) == 0 {
		return "", nil, ErrNoPages
	}

	var maxImpr, maxClicks int
	minPos := math.Inf(1)
	for _, p := range pages {
		if p.Impressions > maxImpr {
			maxImpr = p.Impressions
		}
		if p.Clicks > maxClicks {
			maxClicks = p.Clicks
		}
		if p.Position < minPos {
			minPos = p.Position
		}
	}

	type scored struct {
		url       string
		composite float64
	}
	ranked := make([]scored, 0, len(pages))
	for _, p := range pages {
		var imprNorm, clickNorm, posNorm float64
		if maxImpr > 0 {
			imprNorm = float64(p.Impressions) / float64(maxImpr)
		}
		if maxClicks > 0 {
			clickNorm = float64(p.Clicks) / float64(maxClicks)
		}
		if p.Position > 0 {
			posNorm = minPos / p.Position
		}
		ranked = append(ranked, scored{
			url:       p.URL,
			composite: imprCompositeWeight*imprNorm + clickCompositeWeight*clickNorm + posCompositeWeight*posNorm,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].composite != ranked[j].composite {
			return ranked[i].composite > ranked[j].composite
		}
		return ranked[i].url < ranked[j].url
	})

	supporting = make([]string, 0, len(ranked)-1)
	for _, s := range ranked[1:] {
		supporting = append(supporting, s.url)
	}
	return ranked[0].url, supporting, nil
}

// keywordDifficulty is a coarse volume-based proxy, not a competitive
// metric: difficulty saturates at 10k impressions and is halved.
func keywordDifficulty(impressions int) int {
	raw := math.Min(100, float64(impressions)/difficultyImpressionScale*100)
	return int(math.Round(raw * difficultyDamping))
}

// consolidationGain estimates extra clicks from merging the group onto one
// page, assuming the merged page lands at 60% of the current weighted
// average position (closer to the top of the SERP).
func consolidationGain(totalImpressions int, weightedAvgPosition float64) int {
	if totalImpressions <= 0 || weightedAvgPosition <= 0 {
		return 0
	}
	newPosition := weightedAvgPosition * consolidatedPositionFactor
	if newPosition < 1 {
		newPosition = 1
	}
	delta := ExpectedCTR(newPosition, nil) - ExpectedCTR(weightedAvgPosition, nil)
	return int(math.Round(float64(totalImpressions) * delta))
}
