// Package urlstate maps a browse filter.State to and from its canonical
// query-string form, the representation used for shareable links.
package urlstate

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"

	"campus-market/internal/filter"
	"campus-market/internal/listing"
)

// Recognized query keys.
const (
	KeyCategory    = "category"
	KeyHall        = "hall"
	KeyType        = "type"
	KeyStatus      = "status"
	KeySeasonality = "seasonality"
	KeyCondition   = "condition"
	KeyDiscount    = "discount"
	KeyMinPrice    = "minPrice"
	KeyMaxPrice    = "maxPrice"
	KeyExperience  = "experience"
	KeySearch      = "search"
	KeySort        = "sort"
)

// wire is the encoded form. Zero values are omitted, which is what keeps
// default facets out of the URL.
type wire struct {
	Category    string `url:"category,omitempty"`
	Condition   int    `url:"condition,omitempty"`
	Discount    int    `url:"discount,omitempty"`
	Experience  string `url:"experience,omitempty"`
	Hall        string `url:"hall,omitempty"`
	MaxPrice    string `url:"maxPrice,omitempty"`
	MinPrice    string `url:"minPrice,omitempty"`
	Search      string `url:"search,omitempty"`
	Seasonality string `url:"seasonality,omitempty"`
	Sort        string `url:"sort,omitempty"`
	Status      string `url:"status,omitempty"`
	Type        string `url:"type,omitempty"`
}

// Codec encodes the keys that apply to one listing kind.
type Codec struct {
	kind listing.Kind
	keys []string
}

// For returns the codec for kind.
func For(kind listing.Kind) Codec {
	var keys []string
	switch kind {
	case listing.KindProduct:
		keys = []string{KeyCategory, KeyHall, KeyType, KeyStatus, KeySeasonality, KeyCondition, KeyDiscount, KeyMaxPrice, KeySearch, KeySort}
	case listing.KindService:
		keys = []string{KeyCategory, KeyHall, KeyExperience, KeyMinPrice, KeyMaxPrice, KeySearch, KeySort}
	default:
		keys = []string{KeyCategory, KeySearch, KeySort}
	}
	return Codec{kind: kind, keys: keys}
}

func (c Codec) has(key string) bool {
	return slices.Contains(c.keys, key)
}

// Encode renders s as a query string without the leading '?'. Facets at
// their default, and facets that do not apply to the codec's kind, are left
// out. Enum values are written lower-case.
func (c Codec) Encode(s filter.State) string {
	var w wire
	if c.has(KeyCategory) {
		w.Category = strings.ToLower(s.Category)
	}
	if c.has(KeyHall) {
		w.Hall = s.Hall
	}
	if c.has(KeyType) {
		w.Type = strings.ToLower(s.Type)
	}
	if c.has(KeyStatus) {
		w.Status = strings.ToLower(s.Status)
	}
	if c.has(KeySeasonality) {
		w.Seasonality = strings.ToLower(s.Seasonality)
	}
	if c.has(KeyCondition) {
		w.Condition = s.Condition
	}
	if c.has(KeyDiscount) {
		w.Discount = s.Discount
	}
	if c.has(KeyMinPrice) {
		w.MinPrice = formatNumber(s.MinPrice)
	}
	if c.has(KeyMaxPrice) {
		w.MaxPrice = formatNumber(s.MaxPrice)
	}
	if c.has(KeyExperience) {
		w.Experience = formatNumber(s.Experience)
	}
	w.Search = s.Search
	if s.Sort != filter.DefaultSort {
		w.Sort = string(s.Sort)
	}

	values, err := query.Values(w)
	if err != nil {
		// wire only holds strings and ints
		return ""
	}
	return values.Encode()
}

// Decode parses a query string (with or without the leading '?'). Unknown
// keys, malformed numbers and values outside the known enums are dropped,
// leaving that facet at its default.
func (c Codec) Decode(raw string) filter.State {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		// ParseQuery still returns every pair it could read
		if values == nil {
			return filter.New()
		}
	}
	return c.DecodeValues(values)
}

// DecodeValues is Decode for already parsed values, such as r.URL.Query().
func (c Codec) DecodeValues(values url.Values) filter.State {
	s := filter.New()

	if v, ok := c.enum(values, KeyCategory, listing.CategoriesFor(c.kind)); ok {
		s.Category = v
	}
	if c.has(KeyHall) {
		s.Hall = values.Get(KeyHall)
	}
	if v, ok := c.enum(values, KeyType, listing.ProductTypes); ok {
		s.Type = v
	}
	if v, ok := c.enum(values, KeyStatus, listing.Statuses); ok {
		s.Status = v
	}
	if v, ok := c.enum(values, KeySeasonality, listing.Seasonalities); ok {
		s.Seasonality = v
	}
	if v, ok := c.integer(values, KeyCondition); ok && v >= 1 && v <= 5 {
		s.Condition = v
	}
	if v, ok := c.integer(values, KeyDiscount); ok && v > 0 && v < 100 {
		s.Discount = v
	}
	if v, ok := c.number(values, KeyMinPrice); ok {
		s.MinPrice = v
	}
	if v, ok := c.number(values, KeyMaxPrice); ok {
		s.MaxPrice = v
	}
	if v, ok := c.number(values, KeyExperience); ok {
		s.Experience = v
	}
	s.Search = values.Get(KeySearch)
	if v := filter.SortKey(values.Get(KeySort)); slices.Contains(filter.SortKeysFor(c.kind), v) {
		s.Sort = v
	}

	return s
}

func (c Codec) enum(values url.Values, key string, set []string) (string, bool) {
	if !c.has(key) {
		return "", false
	}
	v := strings.ToUpper(values.Get(key))
	if v == "" || !listing.IsOneOf(set, v) {
		return "", false
	}
	return v, true
}

func (c Codec) integer(values url.Values, key string) (int, bool) {
	if !c.has(key) {
		return 0, false
	}
	v, err := strconv.Atoi(values.Get(key))
	if err != nil {
		return 0, false
	}
	return v, true
}

// number accepts positive finite values only.
func (c Codec) number(values url.Values, key string) (float64, bool) {
	if !c.has(key) {
		return 0, false
	}
	v, err := strconv.ParseFloat(values.Get(key), 64)
	if err != nil || v <= 0 || v != v || v > maxNumber {
		return 0, false
	}
	return v, true
}

const maxNumber = 1e12

func formatNumber(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
