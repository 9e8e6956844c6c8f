package search

import (
	"cmp"
	"slices"
	"strings"
)

// DefaultMaxResults caps SearchInArray when Options.MaxResults is not set.
const DefaultMaxResults = 50

// Options tunes SearchInArray. The zero value searches case-insensitively
// with containment matching and returns at most DefaultMaxResults results.
type Options struct {
	CaseSensitive bool
	// ExactMatch switches matching from "contains" to "equals".
	ExactMatch bool
	MinScore   float64
	MaxResults int
}

// Result is a scored match.
type Result[T Document] struct {
	Item      T         `json:"item"`
	Score     float64   `json:"score"`
	MatchType MatchType `json:"matchType"`
}

// SearchInArray scores every item against query and returns the matches
// ordered by descending score. Items with equal scores keep their input order.
// Truncation to MaxResults happens after sorting.
func SearchInArray[T Document](items []T, query string, opts Options) []Result[T] {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	q := query
	if !opts.CaseSensitive {
		q = normalize(q)
	}

	var results []Result[T]
	for _, item := range items {
		mt, ok := classify(item, q, opts)
		if !ok {
			continue
		}
		score := Score(item, query)
		if score < opts.MinScore {
			continue
		}
		results = append(results, Result[T]{Item: item, Score: score, MatchType: mt})
	}

	slices.SortStableFunc(results, func(a, b Result[T]) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// Items unwraps results back into their documents, preserving order.
func Items[T Document](results []Result[T]) []T {
	out := make([]T, len(results))
	for i, r := range results {
		out[i] = r.Item
	}
	return out
}

// classify decides which fields of doc match q. q is already normalized
// unless opts.CaseSensitive is set.
func classify(doc Document, q string, opts Options) (MatchType, bool) {
	title, desc := doc.SearchTitle(), doc.SearchDescription()
	if !opts.CaseSensitive {
		title, desc = normalize(title), normalize(desc)
	}

	match := containsLoose
	if opts.ExactMatch {
		match = equalsLoose
	}

	inTitle := match(title, q)
	inDesc := desc != "" && match(desc, q)

	switch {
	case inTitle && inDesc:
		return MatchBoth, true
	case inTitle:
		return MatchTitle, true
	case inDesc:
		return MatchDescription, true
	}
	return "", false
}
