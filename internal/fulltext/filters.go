package fulltext

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"campus-market/internal/listing"
)

// Filters narrow a search. Zero values and nil bounds are not applied.
type Filters struct {
	Category      string
	Location      string
	Type          string
	Status        string
	MinCondition  int
	MaxCondition  int
	MinPrice      *float64
	MaxPrice      *float64
	MinExperience *float64
}

// ParseFilters reads filters from a search request. Malformed values are
// dropped rather than rejected.
func ParseFilters(q url.Values) Filters {
	return Filters{
		Category:      strings.ToUpper(strings.TrimSpace(q.Get("category"))),
		Location:      strings.TrimSpace(q.Get("location")),
		Type:          strings.ToUpper(strings.TrimSpace(q.Get("type"))),
		Status:        strings.ToUpper(strings.TrimSpace(q.Get("status"))),
		MinCondition:  parseCondition(q.Get("minCondition")),
		MaxCondition:  parseCondition(q.Get("maxCondition")),
		MinPrice:      parseAmount(q.Get("minPrice")),
		MaxPrice:      parseAmount(q.Get("maxPrice")),
		MinExperience: parseAmount(q.Get("minExperience")),
	}
}

func parseCondition(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 5 {
		return 0
	}
	return n
}

func parseAmount(raw string) *float64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}

// key is a canonical rendering of f for cache keys.
func (f Filters) key() string {
	amount := func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	return fmt.Sprintf("c=%s|l=%s|t=%s|s=%s|cn=%d-%d|p=%s-%s|x=%s",
		f.Category, f.Location, f.Type, f.Status,
		f.MinCondition, f.MaxCondition,
		amount(f.MinPrice), amount(f.MaxPrice), amount(f.MinExperience))
}

// Match reports whether l passes every filter that applies to its kind.
// It mirrors the SQL predicates of the database search.
func (f Filters) Match(l listing.Listing) bool {
	switch l.Kind {
	case listing.KindProduct:
		price := 0.0
		if l.Price != nil {
			price = *l.Price
		}
		return (f.Category == "" || l.Category == f.Category) &&
			(f.Location == "" || l.AddressHall == f.Location) &&
			(f.Type == "" || l.ProductType == f.Type) &&
			(f.Status == "" || l.Status == f.Status) &&
			(f.MinCondition == 0 || l.Condition >= f.MinCondition) &&
			(f.MaxCondition == 0 || l.Condition <= f.MaxCondition) &&
			(f.MinPrice == nil || price >= *f.MinPrice) &&
			(f.MaxPrice == nil || price <= *f.MaxPrice)
	case listing.KindService:
		lo, hi := 0.0, 0.0
		if from, to := l.PriceRange(); from != nil {
			lo, hi = *from, *to
		}
		return (f.Category == "" || l.Category == f.Category) &&
			(f.Location == "" || l.AddressHall == f.Location) &&
			(f.MinPrice == nil || hi >= *f.MinPrice) &&
			(f.MaxPrice == nil || lo <= *f.MaxPrice) &&
			(f.MinExperience == nil || l.Experience() >= *f.MinExperience)
	case listing.KindDemand:
		return f.Category == "" || l.MatchesCategory(f.Category)
	}
	return false
}

// builder numbers placeholders as arguments are added.
type builder struct {
	where []string
	args  []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) and(clause string) {
	b.where = append(b.where, clause)
}

// predicates appends the SQL form of f for kind. Only supplied filters are
// added, and every value is a bound parameter.
func (f Filters) predicates(kind listing.Kind, b *builder) {
	switch kind {
	case listing.KindProduct:
		if f.Category != "" {
			b.and("t.category = " + b.arg(f.Category))
		}
		if f.Location != "" {
			b.and("t.address_hall = " + b.arg(f.Location))
		}
		if f.Type != "" {
			b.and("t.product_type = " + b.arg(f.Type))
		}
		if f.Status != "" {
			b.and("t.status = " + b.arg(f.Status))
		}
		if f.MinCondition != 0 {
			b.and("t.condition >= " + b.arg(f.MinCondition))
		}
		if f.MaxCondition != 0 {
			b.and("t.condition <= " + b.arg(f.MaxCondition))
		}
		if f.MinPrice != nil {
			b.and("COALESCE(t.price, 0) >= " + b.arg(*f.MinPrice))
		}
		if f.MaxPrice != nil {
			b.and("COALESCE(t.price, 0) <= " + b.arg(*f.MaxPrice))
		}
	case listing.KindService:
		if f.Category != "" {
			b.and("t.category = " + b.arg(f.Category))
		}
		if f.Location != "" {
			b.and("t.address_hall = " + b.arg(f.Location))
		}
		// price ranges overlap the requested range
		if f.MinPrice != nil {
			b.and("COALESCE(t.max_price, t.min_price, 0) >= " + b.arg(*f.MinPrice))
		}
		if f.MaxPrice != nil {
			b.and("COALESCE(t.min_price, t.max_price, 0) <= " + b.arg(*f.MaxPrice))
		}
		if f.MinExperience != nil {
			b.and("COALESCE(t.experience_years, 0) >= " + b.arg(*f.MinExperience))
		}
	case listing.KindDemand:
		if f.Category != "" {
			p := b.arg(f.Category)
			b.and("(t.product_category = " + p + " OR t.service_category = " + p + ")")
		}
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes the ILIKE wildcards of s.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
