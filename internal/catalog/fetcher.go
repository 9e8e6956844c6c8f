package catalog

import (
	"context"

	"campus-market/internal/listing"
	"campus-market/internal/pager"
)

// Fetcher serves one listing kind from the store to a pager.Controller, so a
// browse session can run inside the service.
type Fetcher struct {
	store *Store
	kind  listing.Kind
}

// NewFetcher returns a pager.Fetcher over kind.
func NewFetcher(store *Store, kind listing.Kind) *Fetcher {
	return &Fetcher{store: store, kind: kind}
}

func (f *Fetcher) FetchPage(ctx context.Context, req pager.Request) (pager.Page, error) {
	return f.store.List(ctx, f.kind, ListParams{
		Limit:  req.Limit,
		Cursor: req.Cursor,
		Offset: req.Offset,
		Sort:   req.Sort,
	})
}

func (f *Fetcher) FetchCorpus(ctx context.Context) ([]listing.Listing, error) {
	return f.store.Corpus(ctx, f.kind)
}
