package browse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-market/internal/filter"
	"campus-market/internal/listing"
	"campus-market/internal/pager"
)

type memFetcher struct {
	items     []listing.Listing
	pageCalls int
	corpusErr error
	sorts     []string
}

func (m *memFetcher) FetchPage(_ context.Context, req pager.Request) (pager.Page, error) {
	m.pageCalls++
	m.sorts = append(m.sorts, req.Sort)
	ordered := filter.Sort(m.items, filter.SortKey(req.Sort))
	end := min(req.Offset+req.Limit, len(ordered))
	return pager.Page{Items: ordered[req.Offset:end], HasMore: end < len(ordered)}, nil
}

func (m *memFetcher) FetchCorpus(context.Context) ([]listing.Listing, error) {
	if m.corpusErr != nil {
		return nil, m.corpusErr
	}
	return m.items, nil
}

var base = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

func item(id, title string, price float64, ageHours int) listing.Listing {
	return listing.Listing{
		ID:        id,
		Kind:      listing.KindProduct,
		Title:     title,
		Price:     listing.Float(price),
		Status:    listing.StatusListed,
		Category:  "ELECTRONICS",
		CreatedAt: base.Add(-time.Duration(ageHours) * time.Hour),
	}
}

func fixtures() []listing.Listing {
	return []listing.Listing{
		item("a", "Samsung Galaxy", 15000, 1),
		item("b", "Iphone 12 Pro", 25000, 2),
		item("c", "iPhone 13", 40000, 3),
		item("d", "Phone stand", 200, 4),
		item("e", "Desk lamp", 500, 5),
	}
}

func ids(items []listing.Listing) []string {
	out := make([]string, len(items))
	for i, l := range items {
		out[i] = l.ID
	}
	return out
}

func TestUnfilteredSessionPages(t *testing.T) {
	f := &memFetcher{items: fixtures()}
	s := New(listing.KindProduct, f, 2)
	ctx := context.Background()

	require.NoError(t, s.LoadFromQuery(ctx, ""))
	assert.Equal(t, []string{"a", "b"}, ids(s.Results()))
	assert.True(t, s.HasMore())

	_, err := s.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(s.Results()))
}

func TestSearchUsesWholeCorpusAndRanksByRelevance(t *testing.T) {
	f := &memFetcher{items: fixtures()}
	s := New(listing.KindProduct, f, 2)
	ctx := context.Background()

	require.NoError(t, s.LoadFromQuery(ctx, ""))
	require.NoError(t, s.Apply(ctx, filter.SearchChange("iphone")))

	// "c" was never paged in, yet it is found and outranks the longer title
	assert.Equal(t, []string{"c", "b"}, ids(s.Results()))
	assert.False(t, s.HasMore())

	fetched, err := s.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, fetched, "paging is suspended while filtering")
	assert.Equal(t, "search=iphone", s.Query())
}

func TestExplicitSortOverridesRelevance(t *testing.T) {
	f := &memFetcher{items: fixtures()}
	s := New(listing.KindProduct, f, 10)
	ctx := context.Background()

	require.NoError(t, s.LoadFromQuery(ctx, "search=phone&sort=price-low"))
	assert.Equal(t, []string{"d", "b", "c"}, ids(s.Results()))
	assert.Equal(t, "search=phone&sort=price-low", s.Query())
}

func TestResetReturnsToPagedView(t *testing.T) {
	f := &memFetcher{items: fixtures()}
	s := New(listing.KindProduct, f, 3)
	ctx := context.Background()

	require.NoError(t, s.LoadFromQuery(ctx, "maxPrice=600"))
	assert.Equal(t, []string{"d", "e"}, ids(s.Results()))

	require.NoError(t, s.Apply(ctx, filter.Reset{}))
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.Results()))
	assert.Equal(t, "", s.Query())
}

func TestSortChangeRestartsPaging(t *testing.T) {
	f := &memFetcher{items: fixtures()}
	s := New(listing.KindProduct, f, 2)
	ctx := context.Background()

	require.NoError(t, s.LoadFromQuery(ctx, ""))
	require.NoError(t, s.Apply(ctx, filter.SortChange(filter.SortPriceHigh)))

	assert.Equal(t, []string{"c", "b"}, ids(s.Results()))
	assert.Equal(t, []string{"newest", "price-high"}, f.sorts)
}

func TestCorpusFailureSurfaces(t *testing.T) {
	boom := errors.New("db down")
	f := &memFetcher{items: fixtures(), corpusErr: boom}
	s := New(listing.KindProduct, f, 2)
	ctx := context.Background()

	require.NoError(t, s.LoadFromQuery(ctx, ""))
	err := s.Apply(ctx, filter.CategoryChange("ELECTRONICS"))
	assert.ErrorIs(t, err, boom)

	// already displayed items are still filtered rather than lost
	assert.Equal(t, []string{"a", "b"}, ids(s.Results()))
}
