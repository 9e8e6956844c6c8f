package filter

import (
	"campus-market/internal/listing"
	"campus-market/internal/search"
)

type predicate func(listing.Listing) bool

// Filter returns the listings that satisfy every active facet of s, in
// their original order. items is not modified.
func Filter(items []listing.Listing, s State) []listing.Listing {
	preds := predicates(s)
	out := make([]listing.Listing, 0, len(items))
	for _, item := range items {
		if matchesAll(item, preds) {
			out = append(out, item)
		}
	}
	return out
}

// match reports whether a single listing satisfies s.
func match(item listing.Listing, s State) bool {
	return matchesAll(item, predicates(s))
}

func matchesAll(item listing.Listing, preds []predicate) bool {
	for _, p := range preds {
		if !p(item) {
			return false
		}
	}
	return true
}

func predicates(s State) []predicate {
	var preds []predicate

	if s.Category != "" {
		preds = append(preds, func(l listing.Listing) bool { return l.MatchesCategory(s.Category) })
	}
	if s.Hall != "" {
		preds = append(preds, func(l listing.Listing) bool { return l.AddressHall == s.Hall })
	}
	if s.Type != "" {
		preds = append(preds, func(l listing.Listing) bool { return l.ProductType == s.Type })
	}
	if s.Status != "" {
		preds = append(preds, func(l listing.Listing) bool { return l.Status == s.Status })
	}
	if s.Seasonality != "" {
		preds = append(preds, func(l listing.Listing) bool { return l.Seasonality == s.Seasonality })
	}
	if s.Condition != 0 {
		preds = append(preds, func(l listing.Listing) bool { return l.Condition == s.Condition })
	}
	if s.MaxPrice != 0 {
		// items without a price always fit under a ceiling
		preds = append(preds, func(l listing.Listing) bool {
			lo, _ := l.PriceRange()
			return lo == nil || *lo <= s.MaxPrice
		})
	}
	if s.MinPrice != 0 {
		preds = append(preds, func(l listing.Listing) bool {
			_, hi := l.PriceRange()
			return hi == nil || *hi >= s.MinPrice
		})
	}
	if s.Discount != 0 {
		preds = append(preds, func(l listing.Listing) bool { return l.Discount() > s.Discount })
	}
	if s.Experience != 0 {
		preds = append(preds, func(l listing.Listing) bool { return l.Experience() >= s.Experience })
	}
	if s.Search != "" {
		preds = append(preds, func(l listing.Listing) bool { return search.Matches(l, s.Search) })
	}

	return preds
}
