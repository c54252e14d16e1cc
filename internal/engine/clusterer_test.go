package engine

import (
	"reflect"
	"testing"

	"github.com/serpinsight/analyzer/internal/domain"
)

func clusterGroup(query string, impressions int) domain.QueryGroup {
	return domain.QueryGroup{
		Query:            query,
		TotalClicks:      impressions / 10,
		TotalImpressions: impressions,
		Pages: []domain.PageEntry{
			{URL: "https://example.com/p", Clicks: impressions / 10, Impressions: impressions, Position: 5},
		},
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Best Running Shoes!", []string{"best", "running", "shoes"}},
		{"how to fix a PC", []string{"how", "fix"}},
		{"a of to", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := Tokenize(tt.input)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCluster_MergesSharedVocabulary(t *testing.T) {
	kc := NewKeywordClusterer(ClustererConfig{MaxClusters: 1}, nil)

	groups := []domain.QueryGroup{
		clusterGroup("best running shoes", 1000),
		clusterGroup("running shoes review", 900),
		clusterGroup("trail running shoes", 800),
		clusterGroup("chocolate cake recipe", 700),
		clusterGroup("easy chocolate cake", 600),
	}

	clusters := kc.Cluster(groups)

	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %+v", len(clusters), clusters)
	}

	// Ordered by total impressions descending.
	running := clusters[0]
	cake := clusters[1]

	if running.TotalImpressions != 2700 {
		t.Errorf("running cluster impressions = %d, want 2700", running.TotalImpressions)
	}
	if len(running.Keywords) != 3 {
		t.Errorf("running cluster size = %d, want 3", len(running.Keywords))
	}
	if cake.TotalImpressions != 1300 {
		t.Errorf("cake cluster impressions = %d, want 1300", cake.TotalImpressions)
	}
	if len(cake.Keywords) != 2 {
		t.Errorf("cake cluster size = %d, want 2", len(cake.Keywords))
	}
}

func TestCluster_NamesFromFrequentTokens(t *testing.T) {
	kc := NewKeywordClusterer(ClustererConfig{MaxClusters: 1}, nil)

	clusters := kc.Cluster([]domain.QueryGroup{
		clusterGroup("best running shoes", 1000),
		clusterGroup("running shoes review", 900),
		clusterGroup("trail running shoes", 800),
	})

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	// running and shoes appear three times each, remaining tokens tie at
	// one and break lexicographically.
	if clusters[0].Name != "running shoes best" {
		t.Errorf("cluster name = %q, want %q", clusters[0].Name, "running shoes best")
	}
}

func TestCluster_KeywordsSorted(t *testing.T) {
	kc := NewKeywordClusterer(ClustererConfig{MaxClusters: 1}, nil)

	clusters := kc.Cluster([]domain.QueryGroup{
		clusterGroup("zebra print shoes", 500),
		clusterGroup("animal print shoes", 400),
	})

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	kws := clusters[0].Keywords
	for i := 1; i < len(kws); i++ {
		if kws[i-1] > kws[i] {
			t.Errorf("keywords not sorted: %v", kws)
			break
		}
	}
}

func TestCluster_DiscardsSmallClusters(t *testing.T) {
	kc := NewKeywordClusterer(ClustererConfig{MaxClusters: 1}, nil)

	clusters := kc.Cluster([]domain.QueryGroup{
		clusterGroup("quantum computing basics", 1000),
		clusterGroup("gardening tips spring", 900),
		clusterGroup("vintage car auction", 800),
	})

	for _, c := range clusters {
		if len(c.Keywords) < 2 {
			t.Errorf("cluster %q kept with %d members", c.Name, len(c.Keywords))
		}
	}
}

func TestCluster_UnderMaxClustersSkipsMerging(t *testing.T) {
	// Default MaxClusters is far above the input size, so the merge loop
	// never runs and every singleton is discarded.
	kc := NewKeywordClusterer(ClustererConfig{}, nil)

	clusters := kc.Cluster([]domain.QueryGroup{
		clusterGroup("best running shoes", 1000),
		clusterGroup("running shoes review", 900),
	})

	if len(clusters) != 0 {
		t.Errorf("expected no clusters below MaxClusters, got %d", len(clusters))
	}
}

func TestCluster_Deterministic(t *testing.T) {
	kc := NewKeywordClusterer(ClustererConfig{MaxClusters: 2}, nil)

	groups := []domain.QueryGroup{
		clusterGroup("best running shoes", 1000),
		clusterGroup("running shoes review", 900),
		clusterGroup("trail running shoes", 800),
		clusterGroup("chocolate cake recipe", 700),
		clusterGroup("easy chocolate cake", 600),
		clusterGroup("chocolate cake frosting", 500),
	}

	first := kc.Cluster(groups)
	second := kc.Cluster(groups)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated runs differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestCluster_TopQueryCap(t *testing.T) {
	kc := NewKeywordClusterer(ClustererConfig{MaxClusters: 1, TopQueryCap: 2}, nil)

	clusters := kc.Cluster([]domain.QueryGroup{
		clusterGroup("best running shoes", 1000),
		clusterGroup("running shoes review", 900),
		clusterGroup("trail running shoes", 50), // dropped by the cap
	})

	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].Keywords) != 2 {
		t.Errorf("cluster size = %d, want 2 after capping", len(clusters[0].Keywords))
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float64{1, 0}, []float64{1, 0}); !almostEqual(got, 1) {
		t.Errorf("identical vectors = %v, want 1", got)
	}
	if got := cosineSimilarity([]float64{1, 0}, []float64{0, 1}); !almostEqual(got, 0) {
		t.Errorf("orthogonal vectors = %v, want 0", got)
	}
	if got := cosineSimilarity([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Errorf("zero vector = %v, want 0", got)
	}
	if got := cosineSimilarity([]float64{1}, []float64{1, 2}); got != 0 {
		t.Errorf("mismatched lengths = %v, want 0", got)
	}
}
