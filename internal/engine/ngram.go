package engine

import "strings"

// n-gram sizes and their weights in the blended similarity. Shorter grams
// dominate because they tolerate inflection; longer grams reward near-exact
// overlap.
var ngramWeights = []struct {
	size   int
	weight float64
}{
	{2, 0.5},
	{3, 0.3},
	{4, 0.2},
}

// NGramSimilarity scores topical overlap between two strings as a weighted
// Jaccard similarity over character n-grams of the lower-cased inputs.
// This is character-level on purpose: it is used for fuzzy overlap between
// short titles and queries, not for the word-level clustering above.
func NGramSimilarity(text1, text2 string) float64 {
	a := strings.ToLower(text1)
	b := strings.ToLower(text2)

	total := 0.0
	for _, w := range ngramWeights {
		total += w.weight * jaccard(ngramSet(a, w.size), ngramSet(b, w.size))
	}
	return total
}

// ngramSet collects every contiguous substring of length n.
func ngramSet(s string, n int) map[string]struct{} {
	set := make(map[string]struct{})
	if len(s) < n {
		return set
	}
	for i := 0; i+n <= len(s); i++ {
		set[s[i:i+n]] = struct{}{}
	}
	return set
}

// jaccard returns |A∩B| / |A∪B|, and 0 when both sets are empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for g := range a {
		if _, ok := b[g]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
