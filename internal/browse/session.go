// Package browse ties together paging, filtering, sorting and relevance
// ranking for one listing page, the way a user browses it: incremental
// pages while nothing is filtered, the whole corpus once anything is.
package browse

import (
	"context"
	"errors"
	"strings"
	"sync"

	"campus-market/internal/filter"
	"campus-market/internal/listing"
	"campus-market/internal/pager"
	"campus-market/internal/search"
	"campus-market/internal/urlstate"
)

// Session is the browse state of one listing kind.
type Session struct {
	kind  listing.Kind
	codec urlstate.Codec
	pages *pager.Controller

	mu    sync.Mutex
	state filter.State
}

// New starts a session over f with the given page size.
func New(kind listing.Kind, f pager.Fetcher, limit int) *Session {
	s := &Session{
		kind:  kind,
		codec: urlstate.For(kind),
		pages: pager.New(f, limit),
		state: filter.New(),
	}
	s.pages.Reset(string(filter.DefaultSort))
	return s
}

// Kind returns the listing kind being browsed.
func (s *Session) Kind() listing.Kind {
	return s.kind
}

// State returns the current filter state.
func (s *Session) State() filter.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pager exposes the underlying pagination controller.
func (s *Session) Pager() *pager.Controller {
	return s.pages
}

// Apply edits the filter state. Turning filters on makes the full corpus
// resident; changing the sort of an unfiltered view restarts paging.
func (s *Session) Apply(ctx context.Context, changes ...filter.Change) error {
	s.mu.Lock()
	next := filter.Apply(s.state, changes...)
	s.mu.Unlock()
	return s.transition(ctx, next)
}

// LoadFromQuery replaces the filter state with the one encoded in raw.
func (s *Session) LoadFromQuery(ctx context.Context, raw string) error {
	return s.transition(ctx, s.codec.Decode(raw))
}

// Query is the canonical query string of the current state.
func (s *Session) Query() string {
	return s.codec.Encode(s.State())
}

func (s *Session) transition(ctx context.Context, next filter.State) error {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()

	if next.SortOrDefault() != prev.SortOrDefault() {
		s.pages.Reset(string(next.SortOrDefault()))
	}
	s.pages.SetFiltersActive(next.Active())

	if next.Active() {
		_, err := s.pages.EnsureCorpus(ctx)
		if err != nil && !errors.Is(err, pager.ErrBusy) {
			return err
		}
		return nil
	}
	if len(s.pages.Items()) == 0 {
		_, err := s.pages.LoadMore(ctx)
		return err
	}
	return nil
}

// LoadMore loads the next page of an unfiltered view. It is a no-op while
// filters are active.
func (s *Session) LoadMore(ctx context.Context) (bool, error) {
	return s.pages.LoadMore(ctx)
}

// HasMore reports whether LoadMore can still add items.
func (s *Session) HasMore() bool {
	if s.State().Active() {
		return false
	}
	return s.pages.HasMore()
}

// Results returns what the page shows for the current state. Unfiltered
// views show the loaded pages as served. Filtered views narrow the corpus,
// then order it by relevance when a search is set under the default sort,
// and by the chosen sort otherwise.
func (s *Session) Results() []listing.Listing {
	st := s.State()
	if !st.Active() {
		return s.pages.Items()
	}

	corpus := s.pages.Corpus()
	if corpus == nil {
		// corpus not resident yet; filter what has been paged in
		corpus = s.pages.Items()
	}
	matched := filter.Filter(corpus, st)

	q := strings.TrimSpace(st.Search)
	if q != "" && st.SortOrDefault() == filter.DefaultSort {
		return rank(matched, q)
	}
	return filter.Sort(matched, st.SortOrDefault())
}

// rank orders items by relevance to q. Every item is kept.
func rank(items []listing.Listing, q string) []listing.Listing {
	if len(items) == 0 {
		return items
	}
	results := search.SearchInArray(items, q, search.Options{MaxResults: len(items)})
	return search.Items(results)
}
