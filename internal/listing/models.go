package listing

import (
	"fmt"
	"math"
	"time"
)

// Kind tags which variant of the Listing union a record is.
type Kind string

const (
	KindProduct Kind = "product"
	KindService Kind = "service"
	KindDemand  Kind = "demand"
)

// Kinds lists every listing kind in the order results are presented
// (products, then services, then demands).
var Kinds = []Kind{KindProduct, KindService, KindDemand}

// ParseKind accepts the singular or plural form used in URLs ("product", "products").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "product", "products":
		return KindProduct, nil
	case "service", "services":
		return KindService, nil
	case "demand", "demands":
		return KindDemand, nil
	}
	return "", fmt.Errorf("unknown listing kind %q", s)
}

// Plural returns the collection name of the kind ("products").
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Listing is a Product, Service or Demand. Fields that do not belong to the
// record's Kind are left at their zero value.
type Listing struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Product and Service
	Category    string `json:"category,omitempty"`
	AddressHall string `json:"addressHall,omitempty"`

	// Product
	Price         *float64 `json:"price,omitempty"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Condition     int      `json:"condition,omitempty"`
	ProductType   string   `json:"productType,omitempty"`
	Seasonality   string   `json:"seasonality,omitempty"`
	Status        string   `json:"status,omitempty"`

	// Service
	MinPrice        *float64 `json:"minPrice,omitempty"`
	MaxPrice        *float64 `json:"maxPrice,omitempty"`
	ExperienceYears *float64 `json:"experienceYears,omitempty"`

	// Demand. Neither category is guaranteed to be set.
	ProductCategory string `json:"productCategory,omitempty"`
	ServiceCategory string `json:"serviceCategory,omitempty"`
}

// SearchTitle and SearchDescription make a Listing a search.Document.
func (l Listing) SearchTitle() string       { return l.Title }
func (l Listing) SearchDescription() string { return l.Description }

// PriceRange returns the lowest and highest price the listing can be had for.
// Products have a single price; services fall back to whichever bound is set.
// Demands carry no price. A nil bound means "no price" (free or unset).
func (l Listing) PriceRange() (lo, hi *float64) {
	switch l.Kind {
	case KindProduct:
		return l.Price, l.Price
	case KindService:
		lo, hi = l.MinPrice, l.MaxPrice
		if lo == nil {
			lo = hi
		}
		if hi == nil {
			hi = lo
		}
		return lo, hi
	}
	return nil, nil
}

// Discount is the percentage saved against the original price.
// A missing or zero price counts as fully discounted; a missing original
// price counts as no discount.
func (l Listing) Discount() int {
	if l.Price == nil || *l.Price == 0 {
		return 100
	}
	if l.OriginalPrice == nil || *l.OriginalPrice == 0 {
		return 0
	}
	return jsRound((*l.OriginalPrice - *l.Price) / *l.OriginalPrice * 100)
}

// Experience returns the service's experience in years, 0 when unknown.
func (l Listing) Experience() float64 {
	if l.ExperienceYears == nil {
		return 0
	}
	return *l.ExperienceYears
}

// MatchesCategory reports whether the listing is filed under category.
// Demands match on either of their categories.
func (l Listing) MatchesCategory(category string) bool {
	if l.Kind == KindDemand {
		return l.ProductCategory == category || l.ServiceCategory == category
	}
	return l.Category == category
}

// jsRound rounds half toward positive infinity, so -2.5 becomes -2.
func jsRound(f float64) int {
	return int(math.Floor(f + 0.5))
}

// Float is a helper for building optional numeric fields.
func Float(f float64) *float64 {
	return &f
}
