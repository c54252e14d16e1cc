package engine

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/serpinsight/analyzer/internal/domain"
	"github.com/serpinsight/analyzer/internal/logger"
)

// Clustering defaults. The caps bound the agglomerative merge so a large
// scope cannot blow the latency budget; completeness is traded away on
// purpose.
const (
	defaultSimilarityThreshold = 0.5
	defaultMaxClusters         = 50
	defaultMaxIterations       = 100
	defaultTopQueryCap         = 500
	defaultSearchWindow        = 50
	defaultSamplePairs         = 3
	defaultMinClusterSize      = 2

	minTokenLength    = 3
	clusterNameTokens = 3

	topicScoreImprScale   = 1000.0
	topicScoreMemberScale = 5.0
)

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

// ClustererConfig holds the clustering knobs. Every cap is overridable so
// callers can tune the completeness/latency trade-off, but none can be
// disabled into exhaustive search.
type ClustererConfig struct {
	SimilarityThreshold float64
	MaxClusters         int
	MaxIterations       int
	TopQueryCap         int
	SearchWindow        int
	SamplePairs         int
	MinClusterSize      int
}

// KeywordClusterer groups queries that share vocabulary into topic
// clusters using term-frequency vectors and a bounded agglomerative merge.
type KeywordClusterer struct {
	config ClustererConfig
	logger logger.Logger
}

// NewKeywordClusterer creates a clusterer; zero-value config fields fall
// back to defaults.
func NewKeywordClusterer(cfg ClustererConfig, log logger.Logger) *KeywordClusterer {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = defaultSimilarityThreshold
	}
	if cfg.MaxClusters <= 0 {
		cfg.MaxClusters = defaultMaxClusters
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.TopQueryCap <= 0 {
		cfg.TopQueryCap = defaultTopQueryCap
	}
	if cfg.SearchWindow <= 0 {
		cfg.SearchWindow = defaultSearchWindow
	}
	if cfg.SamplePairs <= 0 {
		cfg.SamplePairs = defaultSamplePairs
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = defaultMinClusterSize
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &KeywordClusterer{config: cfg, logger: log}
}

// member is one retained query with its term-frequency vector.
type member struct {
	query       string
	tokens      []string
	vector      []float64
	clicks      int
	impressions int
	position    float64
}

// workCluster is a cluster under construction.
type workCluster struct {
	members []*member
}

// Tokenize lower-cases a query, strips non-word characters, splits on
// whitespace, and drops tokens shorter than three characters.
func Tokenize(query string) []string {
	cleaned := nonWordPattern.ReplaceAllString(strings.ToLower(query), " ")
	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Cluster groups the queries into topic clusters. Only the top queries by
// impressions (TopQueryCap) participate; merging stops when the cluster
// count reaches MaxClusters, the iteration budget runs out, or no candidate
// pair clears the similarity threshold. Clusters smaller than
// MinClusterSize are discarded. Output is sorted by total impressions
// descending.
func (kc *KeywordClusterer) Cluster(groups []domain.QueryGroup) []domain.TopicCluster {
	members := kc.buildMembers(groups)
	if len(members) < kc.config.MinClusterSize {
		return nil
	}

	clusters := make([]*workCluster, len(members))
	for i, m := range members {
		clusters[i] = &workCluster{members: []*member{m}}
	}

	clusters = kc.merge(clusters)

	out := make([]domain.TopicCluster, 0, len(clusters))
	for _, c := range clusters {
		if len(c.members) < kc.config.MinClusterSize {
			continue
		}
		out = append(out, kc.finishCluster(c))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalImpressions != out[j].TotalImpressions {
			return out[i].TotalImpressions > out[j].TotalImpressions
		}
		return out[i].Name < out[j].Name
	})

	kc.logger.Debug("keyword clustering complete",
		logger.Int("queries", len(members)),
		logger.Int("clusters", len(out)),
	)

	return out
}

// buildMembers tokenizes the queries, restricts to the top TopQueryCap by
// impressions, and builds term-frequency vectors over the shared
// vocabulary of the retained queries.
func (kc *KeywordClusterer) buildMembers(groups []domain.QueryGroup) []*member {
	members := make([]*member, 0, len(groups))
	for _, g := range groups {
		tokens := Tokenize(g.Query)
		if len(tokens) == 0 {
			continue
		}
		pos, _ := groupPositionStats(g.Pages)
		members = append(members, &member{
			query:       g.Query,
			tokens:      tokens,
			clicks:      g.TotalClicks,
			impressions: g.TotalImpressions,
			position:    pos,
		})
	}

	sort.SliceStable(members, func(i, j int) bool {
		if members[i].impressions != members[j].impressions {
			return members[i].impressions > members[j].impressions
		}
		return members[i].query < members[j].query
	})
	if len(members) > kc.config.TopQueryCap {
		members = members[:kc.config.TopQueryCap]
	}

	// Shared vocabulary over retained queries only, raw term frequency.
	vocabIndex := make(map[string]int)
	for _, m := range members {
		for _, t := range m.tokens {
			if _, ok := vocabIndex[t]; !ok {
				vocabIndex[t] = len(vocabIndex)
			}
		}
	}
	for _, m := range members {
		vec := make([]float64, len(vocabIndex))
		for _, t := range m.tokens {
			vec[vocabIndex[t]]++
		}
		m.vector = vec
	}

	return members
}

// merge runs the bounded agglomerative loop: scan pairs inside the search
// window, merge the most similar pair if it clears the threshold, stop
// early otherwise.
func (kc *KeywordClusterer) merge(clusters []*workCluster) []*workCluster {
	for iter := 0; iter < kc.config.MaxIterations && len(clusters) > kc.config.MaxClusters; iter++ {
		window := len(clusters)
		if window > kc.config.SearchWindow {
			window = kc.config.SearchWindow
		}

		bestI, bestJ := -1, -1
		bestSim := 0.0
		for i := 0; i < window; i++ {
			for j := i + 1; j < window; j++ {
				sim := kc.sampledSimilarity(clusters[i], clusters[j])
				if sim > bestSim {
					bestSim = sim
					bestI, bestJ = i, j
				}
			}
		}

		if bestI < 0 || bestSim < kc.config.SimilarityThreshold {
			break
		}

		clusters[bestI].members = append(clusters[bestI].members, clusters[bestJ].members...)
		clusters = append(clusters[:bestJ], clusters[bestJ+1:]...)
	}
	return clusters
}

// sampledSimilarity estimates cluster pair similarity from up to
// SamplePairs member vector pairs instead of the full cross product.
// Sampling walks both member lists in order, so it is deterministic.
func (kc *KeywordClusterer) sampledSimilarity(a, b *workCluster) float64 {
	pairs := kc.config.SamplePairs
	if len(a.members) < pairs && len(b.members) < pairs {
		pairs = int(math.Max(float64(len(a.members)), float64(len(b.members))))
	}

	total := 0.0
	for k := 0; k < pairs; k++ {
		va := a.members[k%len(a.members)].vector
		vb := b.members[k%len(b.members)].vector
		total += cosineSimilarity(va, vb)
	}
	return total / float64(pairs)
}

// cosineSimilarity returns 0 for zero vectors rather than NaN.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	normA := math.Sqrt(floats.Dot(a, a))
	normB := math.Sqrt(floats.Dot(b, b))
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}

// finishCluster rolls a work cluster into its output form: name from the
// three most frequent member tokens, impression-weighted average position,
// volume-scaled topic score.
func (kc *KeywordClusterer) finishCluster(c *workCluster) domain.TopicCluster {
	tc := domain.TopicCluster{
		Keywords: make([]string, 0, len(c.members)),
	}

	var posSum, posPlainSum float64
	for _, m := range c.members {
		tc.Keywords = append(tc.Keywords, m.query)
		tc.TotalClicks += m.clicks
		tc.TotalImpressions += m.impressions
		posSum += m.position * float64(m.impressions)
		posPlainSum += m.position
	}
	tc.AvgPosition = weightedPosition(posSum, posPlainSum, tc.TotalImpressions, len(c.members))
	tc.Name = clusterName(c.members)
	tc.TopicScore = math.Min(100,
		float64(tc.TotalImpressions)/topicScoreImprScale*(float64(len(c.members))/topicScoreMemberScale))

	sort.Strings(tc.Keywords)
	return tc
}

// clusterName joins the three most frequent tokens across the cluster's
// members. Frequency ties break lexicographically so names are stable
// across runs.
func clusterName(members []*member) string {
	counts := make(map[string]int)
	for _, m := range members {
		for _, t := range m.tokens {
			counts[t]++
		}
	}

	tokens := make([]string, 0, len(counts))
	for t := range counts {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})

	if len(tokens) > clusterNameTokens {
		tokens = tokens[:clusterNameTokens]
	}
	return strings.Join(tokens, " ")
}
