package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"campus-market/internal/auth"
	"campus-market/internal/browse"
	"campus-market/internal/events"
	"campus-market/internal/listing"
	"campus-market/internal/logger"
	"campus-market/internal/metrics"
	"campus-market/internal/search"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxBrowsePages   = 10
	minSuggestQuery  = 2
)

// Handler handles HTTP requests for listing operations
type Handler struct {
	store     *Store
	events    events.Publisher
	metrics   *metrics.Metrics
	pageLimit int
	maxLimit  int
}

// Option configures a Handler.
type Option func(*Handler)

// WithPageLimits sets the default and maximum page sizes.
func WithPageLimits(def, max int) Option {
	return func(h *Handler) {
		if def > 0 {
			h.pageLimit = def
		}
		if max > 0 {
			h.maxLimit = max
		}
	}
}

// WithEvents publishes listing lifecycle events to p.
func WithEvents(p events.Publisher) Option {
	return func(h *Handler) { h.events = p }
}

// WithMetrics counts listing writes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler creates a new listing handler
func NewHandler(store *Store, opts ...Option) *Handler {
	h := &Handler{
		store:     store,
		events:    events.Noop{},
		pageLimit: defaultPageLimit,
		maxLimit:  maxPageLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func kindFrom(w http.ResponseWriter, r *http.Request) (listing.Kind, bool) {
	kind, err := listing.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		http.Error(w, "unknown listing kind", http.StatusNotFound)
		return "", false
	}
	return kind, true
}

func (h *Handler) limit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		return h.pageLimit
	}
	return min(limit, h.maxLimit)
}

// writeError maps store errors to status codes. Unexpected errors are logged
// and answered with a generic message.
func writeError(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "listing not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden - not the owner", http.StatusForbidden)
	case errors.Is(err, ErrUnknownOwner):
		http.Error(w, "unknown user", http.StatusForbidden)
	case errors.Is(err, ErrBadCursor):
		http.Error(w, "invalid cursor", http.StatusBadRequest)
	default:
		logger.Errorf("%s: %v", op, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// List handles GET /api/{kind}
//
// With forSearch=true the whole visible corpus is returned; otherwise one
// page selected by limit, cursor, offset and sort.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFrom(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	if forSearch, _ := strconv.ParseBool(q.Get("forSearch")); forSearch {
		items, err := h.store.Corpus(r.Context(), kind)
		if err != nil {
			writeError(w, "List corpus", err)
			return
		}
		writeJSON(w, http.StatusOK, CorpusResponse{Items: items})
		return
	}

	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	page, err := h.store.List(r.Context(), kind, ListParams{
		Limit:  h.limit(r),
		Cursor: q.Get("cursor"),
		Offset: offset,
		Sort:   q.Get("sort"),
	})
	if err != nil {
		writeError(w, "List", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/{kind}/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFrom(w, r)
	if !ok {
		return
	}
	viewer, _ := auth.FromContext(r.Context())

	l, err := h.store.Get(r.Context(), kind, mux.Vars(r)["id"], viewer.UserID)
	if err != nil {
		writeError(w, "Get", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Mine handles GET /api/me/{kind}
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFrom(w, r)
	if !ok {
		return
	}
	id, _ := auth.FromContext(r.Context())

	items, err := h.store.ListByOwner(r.Context(), kind, id.UserID)
	if err != nil {
		writeError(w, "Mine", err)
		return
	}
	writeJSON(w, http.StatusOK, CorpusResponse{Items: items})
}

// Create handles POST /api/{kind}
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFrom(w, r)
	if !ok {
		return
	}
	id, _ := auth.FromContext(r.Context())

	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Normalize(kind)
	if err := req.Validate(kind); err != nil {
		writeError(w, "Create", err)
		return
	}

	l, err := h.store.Create(r.Context(), kind, id.UserID, req)
	if err != nil {
		writeError(w, "Create", err)
		return
	}

	h.publish(r.Context(), events.ListingCreated, l)
	writeJSON(w, http.StatusCreated, l)
}

// Update handles PUT /api/{kind}/{id} (owner only)
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFrom(w, r)
	if !ok {
		return
	}
	id, _ := auth.FromContext(r.Context())

	var req UpdateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(kind); err != nil {
		writeError(w, "Update", err)
		return
	}

	l, err := h.store.Update(r.Context(), kind, mux.Vars(r)["id"], id.UserID, req)
	if err != nil {
		writeError(w, "Update", err)
		return
	}

	h.publish(r.Context(), events.ListingUpdated, l)
	writeJSON(w, http.StatusOK, l)
}

// Delete handles DELETE /api/{kind}/{id} (owner only)
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFrom(w, r)
	if !ok {
		return
	}
	id, _ := auth.FromContext(r.Context())
	listingID := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), kind, listingID, id.UserID); err != nil {
		writeError(w, "Delete", err)
		return
	}

	h.publish(r.Context(), events.ListingDeleted, &listing.Listing{ID: listingID, Kind: kind, OwnerID: id.UserID})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publish(ctx context.Context, eventType string, l *listing.Listing) {
	h.metrics.ListingWritten(string(l.Kind), strings.TrimPrefix(eventType, "listing."))

	e := events.Event{Type: eventType, Kind: l.Kind, ID: l.ID, OwnerID: l.OwnerID}
	if eventType != events.ListingDeleted {
		e.Listing = l
	}
	if err := h.events.Publish(ctx, e); err != nil {
		logger.Errorf("publish %s %s: %v", eventType, l.ID, err)
	}
}

// Browse handles GET /api/{kind}/browse
//
// The query string is a browse filter state (category, hall, search, sort
// and so on). Unfiltered views return the first pages (pages=N, default 1);
// filtered views narrow and order the whole corpus.
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFrom(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	session := browse.New(kind, NewFetcher(h.store, kind), h.limit(r))
	if err := session.LoadFromQuery(ctx, r.URL.RawQuery); err != nil {
		writeError(w, "Browse", err)
		return
	}

	pages, _ := strconv.Atoi(r.URL.Query().Get("pages"))
	for i := 1; i < min(pages, maxBrowsePages); i++ {
		fetched, err := session.LoadMore(ctx)
		if err != nil {
			writeError(w, "Browse", err)
			return
		}
		if !fetched {
			break
		}
	}

	items := session.Results()
	total := len(items)
	if !session.State().Active() {
		if n, err := h.store.Count(ctx, kind); err == nil {
			total = n
		} else {
			logger.Errorf("Browse count: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, BrowseResponse{
		Items:   items,
		Query:   session.Query(),
		HasMore: session.HasMore(),
		Total:   total,
	})
}

// Suggestions handles GET /api/suggestions?q=
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	max, _ := strconv.Atoi(r.URL.Query().Get("max"))

	if utf8.RuneCountInString(q) < minSuggestQuery {
		writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: []string{}})
		return
	}

	groups := make([][]listing.Listing, 0, len(listing.Kinds))
	for _, kind := range listing.Kinds {
		items, err := h.store.Corpus(r.Context(), kind)
		if err != nil {
			// a missing group only narrows the suggestions
			logger.Errorf("Suggestions %s: %v", kind, err)
			continue
		}
		groups = append(groups, items)
	}

	writeJSON(w, http.StatusOK, SuggestionsResponse{
		Suggestions: search.GenerateSuggestions(q, max, groups...),
	})
}
