package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"campus-market/internal/listing"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			Margin(1, 0, 0, 0)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	priceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("32"))

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

func amount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// priceLabel renders what a listing costs: one price for products, a range
// for services, nothing for demands.
func priceLabel(l listing.Listing) string {
	switch l.Kind {
	case listing.KindProduct:
		if l.Price == nil || *l.Price == 0 {
			return "free"
		}
		label := amount(*l.Price)
		if d := l.Discount(); d > 0 && d < 100 {
			label += fmt.Sprintf(" (-%d%%)", d)
		}
		return label
	case listing.KindService:
		lo, hi := l.PriceRange()
		switch {
		case lo == nil:
			return "price on request"
		case *lo == *hi:
			return amount(*lo)
		default:
			return amount(*lo) + "-" + amount(*hi)
		}
	}
	return ""
}

func meta(l listing.Listing) string {
	var parts []string
	switch l.Kind {
	case listing.KindDemand:
		for _, c := range []string{l.ProductCategory, l.ServiceCategory} {
			if c != "" {
				parts = append(parts, strings.ToLower(c))
			}
		}
	default:
		if l.Category != "" {
			parts = append(parts, strings.ToLower(l.Category))
		}
		if l.AddressHall != "" {
			parts = append(parts, l.AddressHall)
		}
		if l.Kind == listing.KindProduct && l.Condition > 0 {
			parts = append(parts, fmt.Sprintf("condition %d/5", l.Condition))
		}
		if l.Kind == listing.KindService && l.ExperienceYears != nil {
			parts = append(parts, amount(*l.ExperienceYears)+"y experience")
		}
	}
	parts = append(parts, l.CreatedAt.Format("2006-01-02"))
	return strings.Join(parts, " · ")
}

func renderListing(w io.Writer, i int, l listing.Listing) {
	line := fmt.Sprintf("%3d. %s", i+1, titleStyle.Render(l.Title))
	if p := priceLabel(l); p != "" {
		line += "  " + priceStyle.Render(p)
	}
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "     "+metaStyle.Render(meta(l)))
}

func renderListings(w io.Writer, header string, items []listing.Listing) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%d)", header, len(items))))
	if len(items) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("nothing found"))
		return
	}
	for i, l := range items {
		renderListing(w, i, l)
	}
}
