// Package engine implements the SERP analytics engine: CTR and priority
// scoring, cannibalization detection, keyword clustering, content quality
// analysis, and search intent classification. Everything in this package is
// pure, synchronous, in-memory computation over an immutable snapshot of
// records; it is safe to call from any goroutine.
package engine

import "math"

// SERPFeature names the SERP layout features that shift achievable CTR.
type SERPFeature string

// Features that raise expected CTR for the ranking page.
const (
	FeatureSnippet        SERPFeature = "featured_snippet"
	FeatureSitelinks      SERPFeature = "sitelinks"
	FeatureOptimalTitle   SERPFeature = "optimal_title"
	FeatureNumbersInTitle SERPFeature = "numbers_in_title"
	FeatureEmojiInTitle   SERPFeature = "emoji_in_title"
)

// Features that depress expected CTR because they pull attention away.
const (
	FeatureSnippetCompetitor SERPFeature = "featured_snippet_competitor"
	FeaturePeopleAlsoAsk     SERPFeature = "people_also_ask"
	FeatureLocalPack         SERPFeature = "local_pack"
	FeatureKnowledgePanel    SERPFeature = "knowledge_panel"
	FeatureImagePack         SERPFeature = "image_pack"
	FeatureVideoCarousel     SERPFeature = "video_carousel"
	FeatureShoppingResults   SERPFeature = "shopping_results"
	FeatureTopStories        SERPFeature = "top_stories"
)

// featureMultipliers holds the fixed per-feature CTR factors. The expected
// CTR is the product over present features, so the result never depends on
// the order the features are supplied in.
var featureMultipliers = map[SERPFeature]float64{
	FeatureSnippet:        1.25,
	FeatureSitelinks:      1.15,
	FeatureOptimalTitle:   1.10,
	FeatureNumbersInTitle: 1.08,
	FeatureEmojiInTitle:   1.05,

	FeatureSnippetCompetitor: 0.85,
	FeaturePeopleAlsoAsk:     0.95,
	FeatureLocalPack:         0.80,
	FeatureKnowledgePanel:    0.90,
	FeatureImagePack:         0.93,
	FeatureVideoCarousel:     0.92,
	FeatureShoppingResults:   0.88,
	FeatureTopStories:        0.94,
}

// baseCTRTable is the benchmark click-through rate by integer SERP position.
var baseCTRTable = [11]float64{
	0,     // unused, positions start at 1
	0.316, // 1
	0.158, // 2
	0.108, // 3
	0.081, // 4
	0.066, // 5
	0.053, // 6
	0.044, // 7
	0.037, // 8
	0.032, // 9
	0.028, // 10
}

const (
	deepPositionBase  = 0.028
	deepPositionDecay = 0.15
)

// BaseCTR returns the benchmark CTR for a SERP position. Positions 1-10 use
// the benchmark table (non-integer positions round to the nearest rank);
// deeper positions decay exponentially, continuous with the table at 10.
func BaseCTR(position float64) float64 {
	if position < 1 {
		position = 1
	}
	if position > 10 {
		return deepPositionBase * math.Exp(-deepPositionDecay*(position-10))
	}
	rank := int(math.Round(position))
	if rank < 1 {
		rank = 1
	}
	if rank > 10 {
		rank = 10
	}
	return baseCTRTable[rank]
}

// ExpectedCTR adjusts the benchmark CTR for the SERP features present on
// the result page. Unknown feature names are ignored.
func ExpectedCTR(position float64, features []SERPFeature) float64 {
	ctr := BaseCTR(position)
	for _, f := range features {
		if m, ok := featureMultipliers[f]; ok {
			ctr *= m
		}
	}
	return ctr
}

// CTRGap quantifies the distance between a page's actual CTR and the CTR
// its position should earn.
type CTRGap struct {
	Gap                  float64 `json:"gap"`
	PotentialExtraClicks int     `json:"potential_extra_clicks"` // negative means over-performing
	GapPercentage        float64 `json:"gap_percentage"`
}

// ComputeCTRGap compares current CTR against expected CTR at the given
// impression volume. GapPercentage is 0 when current CTR is 0.
func ComputeCTRGap(current, expected float64, impressions int) CTRGap {
	gap := expected - current
	g := CTRGap{
		Gap:                  gap,
		PotentialExtraClicks: int(math.Round(float64(impressions) * gap)),
	}
	if current > 0 {
		g.GapPercentage = gap / current * 100
	}
	return g
}

// Page performance score weights and scaling factors.
const (
	positionWeight = 0.4
	ctrWeight      = 0.4
	clickWeight    = 0.2

	positionPenaltyPerRank = 5
	ctrScoreScale          = 5
	clicksPerScorePoint    = 10
	clickScoreScale        = 2
)

// PagePerformanceScore condenses a page's click, impression, CTR and
// position profile into a 0-100 score.
func PagePerformanceScore(clicks, impressions int, ctr, position float64) int {
	_ = impressions // volume is captured through clicks and ctr

	positionScore := math.Max(0, 100-position*positionPenaltyPerRank)
	ctrScore := math.Min(100, ctr*100*ctrScoreScale)
	clickScore := math.Min(100, float64(clicks)/clicksPerScorePoint*clickScoreScale)

	score := math.Round(positionWeight*positionScore + ctrWeight*ctrScore + clickWeight*clickScore)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// PriorityScore ranks an optimization opportunity by impact and value per
// unit of effort, discounted by confidence. Effort is clamped to a minimum
// of 1 so the division can never produce Inf or NaN.
func PriorityScore(impact, value, effort, confidence float64) int {
	if effort < 1 {
		effort = 1
	}
	return int(math.Round(impact * value / effort * confidence))
}
