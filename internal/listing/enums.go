package listing

import "slices"

// Enumerated values are stored upper-case.
var (
	ProductCategories = []string{
		"ELECTRONICS", "BOOKS", "FURNITURE", "CLOTHING", "SPORTS",
		"STATIONERY", "APPLIANCES", "CYCLES", "OTHER",
	}
	ServiceCategories = []string{
		"TUTORING", "REPAIR", "DESIGN", "PHOTOGRAPHY", "LAUNDRY",
		"DELIVERY", "CODING", "OTHER",
	}
	ProductTypes  = []string{"SELL", "RENT", "EXCHANGE"}
	Statuses      = []string{"LISTED", "UNLISTED", "SOLD"}
	Seasonalities = []string{"ALL_SEASON", "SUMMER", "WINTER", "MONSOON", "SEMESTER_END"}
)

// StatusListed is the only product status visible to other users.
const StatusListed = "LISTED"

// CategoriesFor returns the category enum that applies to kind.
// Demands accept both product and service categories.
func CategoriesFor(kind Kind) []string {
	switch kind {
	case KindProduct:
		return ProductCategories
	case KindService:
		return ServiceCategories
	}
	return slices.Concat(ProductCategories, ServiceCategories)
}

// IsOneOf reports whether v is a member of set.
func IsOneOf(set []string, v string) bool {
	return slices.Contains(set, v)
}
