package search

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxSuggestions is used when GenerateSuggestions gets a non-positive limit.
	DefaultMaxSuggestions = 5

	minSuggestionQuery = 2
	minSuggestionWord  = 3
)

// GenerateSuggestions proposes completions for query from the titles in
// groups: whole titles starting with the query (other than the query itself)
// and single words of three or more characters starting with it. Suggestions
// come in first-seen order across the groups and are unique.
func GenerateSuggestions[T Document](query string, maxSuggestions int, groups ...[]T) []string {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSuggestionQuery {
		return []string{}
	}
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}

	q := normalize(query)
	qCompact := stripSpaces(q)

	suggestions := make([]string, 0, maxSuggestions)
	seen := make(map[string]struct{})
	add := func(s string) bool {
		if _, ok := seen[s]; ok {
			return false
		}
		seen[s] = struct{}{}
		suggestions = append(suggestions, s)
		return len(suggestions) >= maxSuggestions
	}

	for _, group := range groups {
		for _, doc := range group {
			title := doc.SearchTitle()
			t := normalize(title)
			if t != q && (strings.HasPrefix(t, q) || strings.HasPrefix(stripSpaces(t), qCompact)) {
				if add(title) {
					return suggestions
				}
			}
			for _, word := range strings.Fields(title) {
				if utf8.RuneCountInString(word) < minSuggestionWord {
					continue
				}
				if strings.HasPrefix(normalize(word), q) {
					if add(word) {
						return suggestions
					}
				}
			}
		}
	}
	return suggestions
}
