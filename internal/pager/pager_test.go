package pager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-market/internal/listing"
)

// fakeFetcher serves total items in pages. When cursors is set it issues
// "c<n>" continuation tokens, otherwise it pages by offset.
type fakeFetcher struct {
	total   int
	cursors bool

	mu       sync.Mutex
	requests []Request
	failNext error
	corpusN  atomic.Int32
	block    chan struct{}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, req Request) (Page, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fail := f.failNext
	f.failNext = nil
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if fail != nil {
		return Page{}, fail
	}

	start := req.Offset
	if req.Cursor != "" {
		_, err := fmt.Sscanf(req.Cursor, "c%d", &start)
		if err != nil {
			return Page{}, err
		}
	}
	end := min(start+req.Limit, f.total)
	page := Page{HasMore: end < f.total}
	for i := start; i < end; i++ {
		page.Items = append(page.Items, listing.Listing{ID: fmt.Sprintf("id-%d", i)})
	}
	if f.cursors && page.HasMore {
		page.NextCursor = fmt.Sprintf("c%d", end)
	}
	return page, nil
}

func (f *fakeFetcher) FetchCorpus(ctx context.Context) ([]listing.Listing, error) {
	f.corpusN.Add(1)
	out := make([]listing.Listing, f.total)
	for i := range out {
		out[i] = listing.Listing{ID: fmt.Sprintf("id-%d", i)}
	}
	return out, nil
}

func (f *fakeFetcher) lastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func TestLoadMoreAppendsUntilExhausted(t *testing.T) {
	f := &fakeFetcher{total: 5}
	c := New(f, 2)
	ctx := context.Background()

	prev := 0
	for i := 0; i < 3; i++ {
		fetched, err := c.LoadMore(ctx)
		require.NoError(t, err)
		assert.True(t, fetched)
		assert.GreaterOrEqual(t, len(c.Items()), prev)
		prev = len(c.Items())
	}

	assert.Len(t, c.Items(), 5)
	assert.Equal(t, Exhausted, c.State())
	assert.False(t, c.HasMore())

	fetched, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, fetched, "exhausted is terminal")
	assert.Len(t, f.requests, 3)
}

func TestLoadMoreFallsBackToOffset(t *testing.T) {
	f := &fakeFetcher{total: 10}
	c := New(f, 3)
	ctx := context.Background()

	_, _ = c.LoadMore(ctx)
	_, _ = c.LoadMore(ctx)

	assert.Equal(t, Request{Limit: 3, Offset: 3}, f.lastRequest())
}

// shiftedFetcher serves fixed pages, as an offset-paged source does when a
// listing is inserted at the top between two requests.
type shiftedFetcher struct {
	pages    []Page
	requests []Request
}

func (f *shiftedFetcher) FetchPage(_ context.Context, req Request) (Page, error) {
	f.requests = append(f.requests, req)
	return f.pages[len(f.requests)-1], nil
}

func (f *shiftedFetcher) FetchCorpus(context.Context) ([]listing.Listing, error) {
	return nil, nil
}

func TestLoadMoreDropsRepeatedListings(t *testing.T) {
	ids := func(ids ...string) []listing.Listing {
		out := make([]listing.Listing, len(ids))
		for i, id := range ids {
			out[i] = listing.Listing{ID: id}
		}
		return out
	}
	f := &shiftedFetcher{pages: []Page{
		{Items: ids("a", "b"), HasMore: true},
		{Items: ids("b", "c"), HasMore: true},
		{Items: ids("d"), HasMore: false},
	}}
	c := New(f, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.LoadMore(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, ids("a", "b", "c", "d"), c.Items())
	// offsets count served rows, repeats included
	assert.Equal(t, []int{0, 2, 4}, []int{f.requests[0].Offset, f.requests[1].Offset, f.requests[2].Offset})
	assert.Equal(t, 5, c.Snapshot().Offset)
	assert.Equal(t, Exhausted, c.State())
}

func TestLoadMorePrefersCursor(t *testing.T) {
	f := &fakeFetcher{total: 10, cursors: true}
	c := New(f, 4)
	ctx := context.Background()

	_, _ = c.LoadMore(ctx)
	_, _ = c.LoadMore(ctx)

	assert.Equal(t, Request{Limit: 4, Cursor: "c4"}, f.lastRequest())
	assert.Equal(t, "c8", c.Snapshot().Cursor)
}

func TestLoadMoreFailureIsRetryable(t *testing.T) {
	f := &fakeFetcher{total: 4, cursors: true}
	c := New(f, 2)
	ctx := context.Background()

	_, err := c.LoadMore(ctx)
	require.NoError(t, err)
	before := c.Snapshot()

	boom := errors.New("connection reset")
	f.failNext = boom
	fetched, err := c.LoadMore(ctx)
	assert.True(t, fetched)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, c.Err(), boom)

	after := c.Snapshot()
	assert.Equal(t, Idle, after.State)
	assert.True(t, after.HasMore, "a failure is never exhaustion")
	assert.Equal(t, before.Cursor, after.Cursor)
	assert.Len(t, after.Items, 2)

	_, err = c.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c2", f.lastRequest().Cursor)
	assert.Len(t, c.Items(), 4)
	assert.NoError(t, c.Err())
}

func TestLoadMoreIsNotReentrant(t *testing.T) {
	f := &fakeFetcher{total: 100, block: make(chan struct{})}
	c := New(f, 10)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.LoadMore(ctx)
	}()

	require.Eventually(t, func() bool { return c.State() == LoadingMore }, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fetched, err := c.LoadMore(ctx)
			assert.NoError(t, err)
			assert.False(t, fetched)
		}()
	}
	wg.Wait()

	close(f.block)
	<-done

	assert.Len(t, f.requests, 1)
	assert.Len(t, c.Items(), 10)
}

func TestFiltersSuspendPagingAndLoadCorpusOnce(t *testing.T) {
	f := &fakeFetcher{total: 7}
	c := New(f, 2)
	ctx := context.Background()

	_, _ = c.LoadMore(ctx)
	c.SetFiltersActive(true)

	fetched, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, fetched)

	corpus, err := c.EnsureCorpus(ctx)
	require.NoError(t, err)
	assert.Len(t, corpus, 7)
	_, _ = c.EnsureCorpus(ctx)
	assert.EqualValues(t, 1, f.corpusN.Load())

	// a new filter session refetches
	c.SetFiltersActive(false)
	assert.Nil(t, c.Corpus())
	c.SetFiltersActive(true)
	_, _ = c.EnsureCorpus(ctx)
	assert.EqualValues(t, 2, f.corpusN.Load())
}

func TestResetDiscardsInFlightLoad(t *testing.T) {
	f := &fakeFetcher{total: 10, block: make(chan struct{})}
	c := New(f, 5)
	ctx := context.Background()

	done := make(chan bool)
	go func() {
		fetched, _ := c.LoadMore(ctx)
		done <- fetched
	}()
	require.Eventually(t, func() bool { return c.State() == LoadingMore }, time.Second, time.Millisecond)

	c.Reset("price-low")
	close(f.block)

	assert.False(t, <-done)
	assert.Empty(t, c.Items())
	assert.Equal(t, Idle, c.State())

	f.block = nil
	_, err := c.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "price-low", f.lastRequest().Sort)
}
