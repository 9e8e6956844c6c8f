// Package pager drives incremental loading of a listing collection.
//
// A Controller moves between Idle, LoadingMore and Exhausted. Pages are
// appended, never replaced. A failed load leaves the collection and the
// continuation untouched so the next LoadMore retries the same page.
package pager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"campus-market/internal/listing"
	"campus-market/internal/logger"
)

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 20

// Request asks for one page. Cursor wins over Offset when both are set.
type Request struct {
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Sort   string `json:"sort,omitempty"`
}

// Page is one response of the paged listing endpoint.
type Page struct {
	Items      []listing.Listing `json:"items"`
	HasMore    bool              `json:"hasMore"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

// Fetcher is the listing source a Controller pages through.
type Fetcher interface {
	FetchPage(ctx context.Context, req Request) (Page, error)
	// FetchCorpus returns every visible listing, unpaged.
	FetchCorpus(ctx context.Context) ([]listing.Listing, error)
}

// State of the load cycle.
type State int

const (
	Idle State = iota
	LoadingMore
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingMore:
		return "loading"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrBusy is returned by EnsureCorpus when a corpus fetch is already running.
var ErrBusy = errors.New("pager: load already in progress")

// Snapshot is a consistent view of a Controller.
type Snapshot struct {
	State   State
	Items   []listing.Listing
	HasMore bool
	Cursor  string
	Offset  int
	Err     error
}

// Controller pages through a Fetcher. It is safe for concurrent use; at most
// one page load runs at a time and overlapping LoadMore calls are no-ops.
type Controller struct {
	fetcher Fetcher
	limit   int

	mu      sync.Mutex
	state   State
	sort    string
	items   []listing.Listing
	seen    map[string]struct{}
	hasMore bool
	cursor  string
	// offset counts rows served, duplicates included, so offset paging
	// does not re-request rows that were dropped as repeats.
	offset  int
	lastErr error
	// gen is bumped by Reset; loads started under an older gen are discarded.
	gen uint64

	filtersActive bool
	corpus        []listing.Listing
	corpusLoaded  bool
	corpusLoading bool
}

// New creates a Controller that requests limit items per page.
func New(f Fetcher, limit int) *Controller {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Controller{fetcher: f, limit: limit, hasMore: true}
}

// LoadMore fetches the next page and appends it. It reports whether a fetch
// was actually performed: it does nothing while another load is in flight,
// once the collection is exhausted, or while filters are active.
func (c *Controller) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.state != Idle || !c.hasMore || c.filtersActive {
		c.mu.Unlock()
		return false, nil
	}
	c.state = LoadingMore
	gen := c.gen
	req := Request{Limit: c.limit, Sort: c.sort}
	if c.cursor != "" {
		req.Cursor = c.cursor
	} else {
		req.Offset = c.offset
	}
	c.mu.Unlock()

	page, err := c.fetcher.FetchPage(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Reset while in flight; the new cycle owns the state now
		return false, nil
	}
	if err != nil {
		logger.Errorf("pager: load more (cursor=%q offset=%d): %v", req.Cursor, req.Offset, err)
		c.lastErr = err
		c.state = Idle
		return true, err
	}

	c.lastErr = nil
	c.offset += len(page.Items)
	c.appendNew(page.Items)
	if page.NextCursor != "" {
		c.cursor = page.NextCursor
	}
	c.hasMore = page.HasMore
	if c.hasMore {
		c.state = Idle
	} else {
		c.state = Exhausted
	}
	return true, nil
}

// appendNew appends the items not loaded yet. A listing created while
// paging by offset shifts rows, so a page may repeat earlier ones.
func (c *Controller) appendNew(items []listing.Listing) {
	if c.seen == nil {
		c.seen = make(map[string]struct{}, len(items))
	}
	for _, item := range items {
		if _, dup := c.seen[item.ID]; dup {
			continue
		}
		c.seen[item.ID] = struct{}{}
		c.items = append(c.items, item)
	}
}

// SetFiltersActive suspends incremental loading while filters are on.
// Switching filters off drops the resident corpus so the next filter session
// fetches a fresh one.
func (c *Controller) SetFiltersActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filtersActive == active {
		return
	}
	c.filtersActive = active
	if !active {
		c.corpus = nil
		c.corpusLoaded = false
	}
}

// EnsureCorpus makes the full corpus resident, fetching it at most once per
// filter session. It returns the corpus.
func (c *Controller) EnsureCorpus(ctx context.Context) ([]listing.Listing, error) {
	c.mu.Lock()
	if c.corpusLoaded {
		corpus := c.corpus
		c.mu.Unlock()
		return corpus, nil
	}
	if c.corpusLoading {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.corpusLoading = true
	gen := c.gen
	c.mu.Unlock()

	items, err := c.fetcher.FetchCorpus(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return items, err
	}
	c.corpusLoading = false
	if err != nil {
		logger.Errorf("pager: load corpus: %v", err)
		c.lastErr = err
		return nil, err
	}
	c.lastErr = nil
	c.corpus = items
	c.corpusLoaded = true
	return items, nil
}

// Corpus returns the resident corpus, or nil when none is loaded.
func (c *Controller) Corpus() []listing.Listing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.corpus
}

// Reset starts a new paging cycle under sort. Loaded items, the cursor and
// the corpus are dropped; results of loads started before Reset are ignored.
func (c *Controller) Reset(sort string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.sort = sort
	c.items = nil
	c.seen = nil
	c.offset = 0
	c.cursor = ""
	c.hasMore = true
	c.state = Idle
	c.lastErr = nil
	c.corpus = nil
	c.corpusLoaded = false
	c.corpusLoading = false
}

// State returns the current load state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Items returns the listings loaded so far. The returned slice must not be
// modified.
func (c *Controller) Items() []listing.Listing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items
}

// HasMore reports whether another page may exist.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Err returns the error of the last failed load, nil after a success.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Snapshot returns the whole controller state at once.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:   c.state,
		Items:   c.items,
		HasMore: c.hasMore,
		Cursor:  c.cursor,
		Offset:  c.offset,
		Err:     c.lastErr,
	}
}
