package catalog

import (
	"errors"
	"fmt"
	"strings"

	"campus-market/internal/listing"
)

var (
	// ErrNotFound means the listing does not exist or is not visible to the caller.
	ErrNotFound = errors.New("listing not found")
	// ErrForbidden means the caller does not own the listing.
	ErrForbidden = errors.New("not the owner of this listing")
	// ErrBadCursor is returned for cursors this service did not issue.
	ErrBadCursor = errors.New("malformed cursor")
)

// ValidationError describes a rejected create or update payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ListParams asks for one page of visible listings.
type ListParams struct {
	Limit  int
	Cursor string
	Offset int
	Sort   string
}

// CorpusResponse is the full-corpus answer of GET /api/{kind}?forSearch=true
type CorpusResponse struct {
	Items []listing.Listing `json:"items"`
}

// BrowseResponse is the answer of GET /api/{kind}/browse
type BrowseResponse struct {
	Items   []listing.Listing `json:"items"`
	Query   string            `json:"query"`
	HasMore bool              `json:"hasMore"`
	Total   int               `json:"total"`
}

// SuggestionsResponse is the answer of GET /api/suggestions
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// CreateListingRequest represents the payload for creating a listing of any
// kind. Fields that do not apply to the kind are ignored.
type CreateListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Category    string   `json:"category"`
	AddressHall string   `json:"addressHall"`

	Price         *float64 `json:"price"`
	OriginalPrice *float64 `json:"originalPrice"`
	Condition     int      `json:"condition"`
	ProductType   string   `json:"productType"`
	Seasonality   string   `json:"seasonality"`
	Status        string   `json:"status"`

	MinPrice        *float64 `json:"minPrice"`
	MaxPrice        *float64 `json:"maxPrice"`
	ExperienceYears *float64 `json:"experienceYears"`

	ProductCategory string `json:"productCategory"`
	ServiceCategory string `json:"serviceCategory"`
}

// UpdateListingRequest represents the payload for updating a listing. Only
// the fields present are changed.
type UpdateListingRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Images      *[]string `json:"images,omitempty"`
	Category    *string   `json:"category,omitempty"`
	AddressHall *string   `json:"addressHall,omitempty"`

	Price         *float64 `json:"price,omitempty"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Condition     *int     `json:"condition,omitempty"`
	ProductType   *string  `json:"productType,omitempty"`
	Seasonality   *string  `json:"seasonality,omitempty"`
	Status        *string  `json:"status,omitempty"`

	MinPrice        *float64 `json:"minPrice,omitempty"`
	MaxPrice        *float64 `json:"maxPrice,omitempty"`
	ExperienceYears *float64 `json:"experienceYears,omitempty"`

	ProductCategory *string `json:"productCategory,omitempty"`
	ServiceCategory *string `json:"serviceCategory,omitempty"`
}

// Normalize upper-cases enum fields and fills product defaults.
func (req *CreateListingRequest) Normalize(kind listing.Kind) {
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.ToUpper(req.Category)
	req.ProductCategory = strings.ToUpper(req.ProductCategory)
	req.ServiceCategory = strings.ToUpper(req.ServiceCategory)
	req.ProductType = strings.ToUpper(req.ProductType)
	req.Seasonality = strings.ToUpper(req.Seasonality)
	req.Status = strings.ToUpper(req.Status)
	if kind == listing.KindProduct {
		if req.ProductType == "" {
			req.ProductType = "SELL"
		}
		if req.Seasonality == "" {
			req.Seasonality = "ALL_SEASON"
		}
		if req.Status == "" {
			req.Status = listing.StatusListed
		}
	}
}

// Validate checks the payload against the rules of kind.
func (req *CreateListingRequest) Validate(kind listing.Kind) error {
	if req.Title == "" {
		return invalid("title", "required")
	}
	switch kind {
	case listing.KindProduct:
		if !listing.IsOneOf(listing.ProductCategories, req.Category) {
			return invalid("category", "unknown product category")
		}
		if req.Condition < 1 || req.Condition > 5 {
			return invalid("condition", "must be between 1 and 5")
		}
		if !listing.IsOneOf(listing.ProductTypes, req.ProductType) {
			return invalid("productType", "unknown product type")
		}
		if !listing.IsOneOf(listing.Seasonalities, req.Seasonality) {
			return invalid("seasonality", "unknown seasonality")
		}
		if !listing.IsOneOf(listing.Statuses, req.Status) {
			return invalid("status", "unknown status")
		}
		if err := nonNegative("price", req.Price); err != nil {
			return err
		}
		return nonNegative("originalPrice", req.OriginalPrice)
	case listing.KindService:
		if !listing.IsOneOf(listing.ServiceCategories, req.Category) {
			return invalid("category", "unknown service category")
		}
		if err := nonNegative("minPrice", req.MinPrice); err != nil {
			return err
		}
		if err := nonNegative("maxPrice", req.MaxPrice); err != nil {
			return err
		}
		if req.MinPrice != nil && req.MaxPrice != nil && *req.MinPrice > *req.MaxPrice {
			return invalid("minPrice", "greater than maxPrice")
		}
		return nonNegative("experienceYears", req.ExperienceYears)
	case listing.KindDemand:
		// both categories are optional
		if req.ProductCategory != "" && !listing.IsOneOf(listing.ProductCategories, req.ProductCategory) {
			return invalid("productCategory", "unknown product category")
		}
		if req.ServiceCategory != "" && !listing.IsOneOf(listing.ServiceCategories, req.ServiceCategory) {
			return invalid("serviceCategory", "unknown service category")
		}
	}
	return nil
}

// Validate checks the fields present in an update.
func (req *UpdateListingRequest) Validate(kind listing.Kind) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return invalid("title", "required")
	}
	upper := func(p *string) {
		if p != nil {
			*p = strings.ToUpper(*p)
		}
	}
	upper(req.Category)
	upper(req.ProductType)
	upper(req.Seasonality)
	upper(req.Status)
	upper(req.ProductCategory)
	upper(req.ServiceCategory)

	checkEnum := func(field string, p *string, set []string) error {
		if p != nil && !listing.IsOneOf(set, *p) {
			return invalid(field, "unknown value")
		}
		return nil
	}

	var errs []error
	switch kind {
	case listing.KindProduct:
		errs = append(errs,
			checkEnum("category", req.Category, listing.ProductCategories),
			checkEnum("productType", req.ProductType, listing.ProductTypes),
			checkEnum("seasonality", req.Seasonality, listing.Seasonalities),
			checkEnum("status", req.Status, listing.Statuses),
			nonNegative("price", req.Price),
			nonNegative("originalPrice", req.OriginalPrice),
		)
		if req.Condition != nil && (*req.Condition < 1 || *req.Condition > 5) {
			errs = append(errs, invalid("condition", "must be between 1 and 5"))
		}
	case listing.KindService:
		errs = append(errs,
			checkEnum("category", req.Category, listing.ServiceCategories),
			nonNegative("minPrice", req.MinPrice),
			nonNegative("maxPrice", req.MaxPrice),
			nonNegative("experienceYears", req.ExperienceYears),
		)
	case listing.KindDemand:
		if req.ProductCategory != nil && *req.ProductCategory != "" {
			errs = append(errs, checkEnum("productCategory", req.ProductCategory, listing.ProductCategories))
		}
		if req.ServiceCategory != nil && *req.ServiceCategory != "" {
			errs = append(errs, checkEnum("serviceCategory", req.ServiceCategory, listing.ServiceCategories))
		}
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func nonNegative(field string, v *float64) error {
	if v != nil && *v < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}
