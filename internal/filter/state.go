// Package filter holds the browse state of a listing page and the pure
// functions that narrow and order a listing collection by it.
package filter

import "strings"

// SortKey names an ordering of listings.
type SortKey string

const (
	SortNewest         SortKey = "newest"
	SortOldest         SortKey = "oldest"
	SortPriceLow       SortKey = "price-low"
	SortPriceHigh      SortKey = "price-high"
	SortConditionHigh  SortKey = "condition-high"
	SortConditionLow   SortKey = "condition-low"
	SortExperienceHigh SortKey = "experience-high"
	SortExperienceLow  SortKey = "experience-low"
)

// DefaultSort is the ordering used when none is chosen.
const DefaultSort = SortNewest

// State is everything a user can narrow a listing page by. A zero field
// means no constraint on that facet.
type State struct {
	Category    string
	Hall        string
	Type        string
	Status      string
	Seasonality string
	// Condition is 1-5 when set.
	Condition int
	// Discount keeps items whose discount is strictly above this percentage.
	Discount   int
	MinPrice   float64
	MaxPrice   float64
	Experience float64
	Search     string
	Sort       SortKey
}

// New returns a State with no constraints and the default sort.
func New() State {
	return State{Sort: DefaultSort}
}

// SortOrDefault returns the chosen sort, or DefaultSort when unset.
func (s State) SortOrDefault() SortKey {
	if s.Sort == "" {
		return DefaultSort
	}
	return s.Sort
}

// Active reports whether any filter or search narrows the collection.
// Sorting alone does not count.
func (s State) Active() bool {
	return s.Category != "" ||
		s.Hall != "" ||
		s.Type != "" ||
		s.Status != "" ||
		s.Seasonality != "" ||
		s.Condition != 0 ||
		s.Discount != 0 ||
		s.MinPrice != 0 ||
		s.MaxPrice != 0 ||
		s.Experience != 0 ||
		strings.TrimSpace(s.Search) != ""
}
