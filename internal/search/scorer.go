// Package search implements in-memory relevance scoring, ranking and
// autocomplete suggestions over listings that are already loaded.
package search

import (
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Document is anything with a title and an optional description.
type Document interface {
	SearchTitle() string
	SearchDescription() string
}

// MatchType tells which fields of a document matched a query.
type MatchType string

const (
	MatchTitle       MatchType = "title"
	MatchDescription MatchType = "description"
	MatchBoth        MatchType = "both"
)

// Score points. The title ladder is exclusive, the description bonus is added
// on top of it.
const (
	scoreExact       = 100
	scorePrefix      = 80
	scoreSubstring   = 60
	scoreDescription = 30
	lengthBonusMax   = 20
)

// Score rates how well doc matches query. Both sides are lower-cased; the
// substring checks also accept a match once all whitespace is removed, so
// "Mac Book" matches "macbook". The result is only meaningful for documents
// that match at all.
func Score(doc Document, query string) float64 {
	title := normalize(doc.SearchTitle())
	desc := normalize(doc.SearchDescription())
	q := normalize(query)

	var score float64
	switch {
	case title == q:
		score = scoreExact
	case strings.HasPrefix(title, q):
		score = scorePrefix
	case containsLoose(title, q):
		score = scoreSubstring
	}

	if desc != "" && containsLoose(desc, q) {
		score += scoreDescription
	}

	lengthDiff := utf8.RuneCountInString(title) - utf8.RuneCountInString(q)
	score += math.Max(0, float64(lengthBonusMax-lengthDiff))

	return score
}

// Matches reports whether query occurs in the title or description of doc,
// ignoring case and whitespace. An empty query matches everything.
func Matches(doc Document, query string) bool {
	q := normalize(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return containsLoose(normalize(doc.SearchTitle()), q) ||
		containsLoose(normalize(doc.SearchDescription()), q)
}

func normalize(s string) string {
	return cases.Lower(language.Und).String(s)
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// containsLoose is plain containment or containment with whitespace removed
// from both sides.
func containsLoose(text, q string) bool {
	if strings.Contains(text, q) {
		return true
	}
	return strings.Contains(stripSpaces(text), stripSpaces(q))
}

// equalsLoose is equality or equality with whitespace removed from both sides.
func equalsLoose(text, q string) bool {
	return text == q || stripSpaces(text) == stripSpaces(q)
}
