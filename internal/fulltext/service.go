// Package fulltext implements ranked listing search in Postgres, with an
// in-memory fallback over the listing corpus.
package fulltext

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"campus-market/internal/catalog"
	"campus-market/internal/listing"
	"campus-market/internal/logger"
	"campus-market/internal/metrics"
	"campus-market/internal/search"
)

const (
	// MinQueryLength is the shortest trimmed query that is searched at all.
	MinQueryLength = 2
	DefaultLimit   = 20
	MaxLimit       = 100
)

// Result is a listing with its relevance rank.
type Result struct {
	listing.Listing
	Rank float64 `json:"rank"`
}

// Response is the answer of a universal search.
type Response struct {
	Products []Result `json:"products"`
	Services []Result `json:"services"`
	Demands  []Result `json:"demands"`
	Total    int      `json:"total"`

	// degraded is set when a sub-search failed and its slot is empty for
	// that reason rather than for lack of matches.
	degraded bool
}

// Searcher searches every listing kind at once.
type Searcher interface {
	UniversalSearch(ctx context.Context, q string, f Filters, limit int) Response
}

type searchFunc func(ctx context.Context, kind listing.Kind, q string, f Filters, limit int) ([]Result, error)

// fanOut runs one search per kind concurrently. A failing sub-search
// contributes an empty slot and marks the response degraded.
func fanOut(ctx context.Context, fn searchFunc, q string, f Filters, limit int) Response {
	var resp Response
	slots := []struct {
		kind listing.Kind
		dst  *[]Result
	}{
		{listing.KindProduct, &resp.Products},
		{listing.KindService, &resp.Services},
		{listing.KindDemand, &resp.Demands},
	}
	failed := make([]bool, len(slots))

	var g errgroup.Group
	for i, slot := range slots {
		g.Go(func() error {
			results, err := fn(ctx, slot.kind, q, f, limit)
			if err != nil {
				failed[i] = true
				results = []Result{}
			}
			*slot.dst = results
			return nil
		})
	}
	_ = g.Wait()

	resp.degraded = slices.Contains(failed, true)
	resp.Total = len(resp.Products) + len(resp.Services) + len(resp.Demands)
	return resp
}

func searchable(q string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(q)) >= MinQueryLength
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Service searches listings with Postgres text search. Ranking combines
// ts_rank over the weighted title/description vector with pg_trgm title
// similarity, so typos and partial words still surface.
type Service struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

// NewService creates a database-backed searcher.
func NewService(db *sql.DB, m *metrics.Metrics) *Service {
	return &Service{db: db, metrics: m}
}

// buildQuery renders the ranked search of kind. q must be trimmed.
func buildQuery(kind listing.Kind, q string, f Filters, limit int) (string, []any) {
	b := &builder{}
	text := b.arg(q)
	like := b.arg("%" + escapeLike(q) + "%")

	b.and(catalog.Visible(kind))
	b.and(fmt.Sprintf(`(t.search_vector @@ plainto_tsquery('simple', %[1]s) OR t.title ILIKE %[2]s ESCAPE '\' OR t.description ILIKE %[2]s ESCAPE '\')`, text, like))
	f.predicates(kind, b)

	query := fmt.Sprintf(
		"SELECT %s, ts_rank(t.search_vector, plainto_tsquery('simple', %s)) + similarity(t.title, %s) AS rank"+
			" FROM %s t JOIN market.users u ON u.id = t.owner_id"+
			" WHERE %s"+
			" ORDER BY rank DESC, t.created_at DESC"+
			" LIMIT %s",
		catalog.Columns(kind, "t."), text, text, catalog.Table(kind),
		strings.Join(b.where, " AND "), b.arg(clampLimit(limit)))
	return query, b.args
}

// Search returns the visible listings of kind matching q, best first.
// Errors are logged and answered with no results.
func (s *Service) Search(ctx context.Context, kind listing.Kind, q string, f Filters, limit int) []Result {
	results, _ := s.search(ctx, kind, q, f, limit)
	return results
}

func (s *Service) search(ctx context.Context, kind listing.Kind, q string, f Filters, limit int) ([]Result, error) {
	q = strings.TrimSpace(q)
	if !searchable(q) {
		return []Result{}, nil
	}

	query, args := buildQuery(kind, q, f, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return []Result{}, s.fail(ctx, kind, err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		var r Result
		l, err := catalog.ScanListing(kind, rows, &r.Rank)
		if err != nil {
			return []Result{}, s.fail(ctx, kind, err)
		}
		r.Listing = l
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return []Result{}, s.fail(ctx, kind, err)
	}
	return results, nil
}

// fail records err unless the caller gave up on the search; a superseded
// live query is not a failure.
func (s *Service) fail(ctx context.Context, kind listing.Kind, err error) error {
	if ctx.Err() != nil {
		logger.Debugf("fulltext search %s abandoned: %v", kind, ctx.Err())
		return ctx.Err()
	}
	logger.Errorf("fulltext search %s: %v", kind, err)
	s.metrics.SearchFailed(string(kind))
	return err
}

// UniversalSearch searches products, services and demands concurrently.
func (s *Service) UniversalSearch(ctx context.Context, q string, f Filters, limit int) Response {
	return fanOut(ctx, s.search, q, f, limit)
}

// CorpusSource loads every visible listing of a kind.
type CorpusSource interface {
	Corpus(ctx context.Context, kind listing.Kind) ([]listing.Listing, error)
}

// Local searches the corpus in memory with the relevance scorer. It answers
// /api/search while database search is switched off.
type Local struct {
	corpus  CorpusSource
	metrics *metrics.Metrics
}

// NewLocal creates an in-memory searcher over corpus.
func NewLocal(corpus CorpusSource, m *metrics.Metrics) *Local {
	return &Local{corpus: corpus, metrics: m}
}

func (l *Local) Search(ctx context.Context, kind listing.Kind, q string, f Filters, limit int) []Result {
	results, _ := l.search(ctx, kind, q, f, limit)
	return results
}

func (l *Local) search(ctx context.Context, kind listing.Kind, q string, f Filters, limit int) ([]Result, error) {
	if !searchable(q) {
		return []Result{}, nil
	}

	items, err := l.corpus.Corpus(ctx, kind)
	if err != nil {
		if ctx.Err() != nil {
			return []Result{}, ctx.Err()
		}
		logger.Errorf("local search %s: %v", kind, err)
		l.metrics.SearchFailed(string(kind))
		return []Result{}, err
	}

	matched := items[:0:0]
	for _, item := range items {
		if f.Match(item) {
			matched = append(matched, item)
		}
	}

	found := search.SearchInArray(matched, q, search.Options{MaxResults: clampLimit(limit)})
	results := make([]Result, len(found))
	for i, r := range found {
		results[i] = Result{Listing: r.Item, Rank: r.Score}
	}
	return results, nil
}

// UniversalSearch searches every kind's corpus concurrently.
func (l *Local) UniversalSearch(ctx context.Context, q string, f Filters, limit int) Response {
	return fanOut(ctx, l.search, q, f, limit)
}
