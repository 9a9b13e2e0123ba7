// Package filter implements the incremental fuzzy filter over entry
// display names. It is a pure function of (names, query): no state, no
// side effects, safe to call on every keystroke.
package filter

import (
	"sort"

	"github.com/sahilm/fuzzy"
)

// Result is one filtered entry: the index into the input list (which
// is snapshot order), the path used for deterministic tie-breaking,
// the match score and the matched character positions for highlighting.
type Result struct {
	Index          int
	Path           string
	Score          int
	MatchedIndexes []int
}

// Filter runs subsequence matching of query against names. paths must
// be parallel to names (paths[i] is the entry behind names[i]).
//
// An empty query returns every entry in input order with a uniform
// score. Otherwise results are ordered by score descending, ties broken
// by lexicographic path order so repeated identical queries always
// produce the same sequence.
func Filter(query string, names []string, paths []string) []Result {
	if query == "" {
		results := make([]Result, len(names))
		for i := range names {
			results[i] = Result{Index: i, Path: paths[i]}
		}
		return results
	}

	matches := fuzzy.Find(query, names)

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Index:          m.Index,
			Path:           paths[m.Index],
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})

	return results
}
