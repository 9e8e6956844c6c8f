package filter

import (
	"cmp"
	"slices"

	"campus-market/internal/listing"
)

// SortKeysFor lists the orderings offered for kind.
func SortKeysFor(kind listing.Kind) []SortKey {
	switch kind {
	case listing.KindProduct:
		return []SortKey{SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortConditionHigh, SortConditionLow}
	case listing.KindService:
		return []SortKey{SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortExperienceHigh, SortExperienceLow}
	}
	return []SortKey{SortNewest, SortOldest}
}

// Sort returns a new slice ordered by key. Ties keep their input order and an
// unknown key leaves the order unchanged. items is not modified.
func Sort(items []listing.Listing, key SortKey) []listing.Listing {
	out := slices.Clone(items)
	compare := comparator(key)
	if compare == nil {
		return out
	}
	slices.SortStableFunc(out, compare)
	return out
}

func comparator(key SortKey) func(a, b listing.Listing) int {
	switch key {
	case SortNewest:
		return func(a, b listing.Listing) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case SortOldest:
		return func(a, b listing.Listing) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case SortPriceLow:
		return func(a, b listing.Listing) int { return cmp.Compare(price(a), price(b)) }
	case SortPriceHigh:
		return func(a, b listing.Listing) int { return cmp.Compare(price(b), price(a)) }
	case SortConditionHigh:
		return func(a, b listing.Listing) int { return cmp.Compare(b.Condition, a.Condition) }
	case SortConditionLow:
		return func(a, b listing.Listing) int { return cmp.Compare(a.Condition, b.Condition) }
	case SortExperienceHigh:
		return func(a, b listing.Listing) int { return cmp.Compare(b.Experience(), a.Experience()) }
	case SortExperienceLow:
		return func(a, b listing.Listing) int { return cmp.Compare(a.Experience(), b.Experience()) }
	}
	return nil
}

// price is the lowest price of l, 0 when it has none.
func price(l listing.Listing) float64 {
	lo, _ := l.PriceRange()
	if lo == nil {
		return 0
	}
	return *lo
}
