// Package fuzzy implements token-set similarity for vendor names and line
// descriptions.
package fuzzy

import (
	"sort"

	"github.com/odyssey-erp/invoiceguard/internal/normalize"
)

// DefaultThreshold is the similarity a pair must exceed to count as a match.
const DefaultThreshold = 0.6

// Similarity returns the Jaccard similarity of the whitespace token sets of a
// and b after normalization. Equal normalized strings score 1.0 and an empty
// side scores 0.
func Similarity(a, b string) float64 {
	na, nb := normalize.Text(a), normalize.Text(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	left := tokenSet(na)
	right := tokenSet(nb)
	inter := 0
	for tok := range left {
		if _, ok := right[tok]; ok {
			inter++
		}
	}
	union := len(left) + len(right) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Match reports whether a and b match under DefaultThreshold together with
// the raw similarity.
func Match(a, b string) (bool, float64) {
	return MatchWithThreshold(a, b, DefaultThreshold)
}

// MatchWithThreshold is Match with a caller supplied threshold.
func MatchWithThreshold(a, b string, threshold float64) (bool, float64) {
	sim := Similarity(a, b)
	return sim == 1 || sim > threshold, sim
}

// Best returns the index and similarity of the candidate most similar to
// query among those that match. Ties keep the first candidate seen; -1 means
// nothing matched.
func Best(query string, candidates []string) (int, float64) {
	best, bestSim := -1, 0.0
	for i, cand := range candidates {
		ok, sim := Match(query, cand)
		if !ok {
			continue
		}
		if best == -1 || sim > bestSim {
			best, bestSim = i, sim
		}
	}
	return best, bestSim
}

// First returns the index and similarity of the first candidate that
// matches query, or -1.
func First(query string, candidates []string) (int, float64) {
	for i, cand := range candidates {
		if ok, sim := Match(query, cand); ok {
			return i, sim
		}
	}
	return -1, 0
}

// Ranked is a candidate index with its similarity to a query.
type Ranked struct {
	Index      int
	Similarity float64
}

// Top returns up to n candidates ordered by descending similarity regardless
// of threshold. Equal similarities keep candidate order.
func Top(query string, candidates []string, n int) []Ranked {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	ranked := make([]Ranked, len(candidates))
	for i, cand := range candidates {
		ranked[i] = Ranked{Index: i, Similarity: Similarity(query, cand)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range normalize.Tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}
