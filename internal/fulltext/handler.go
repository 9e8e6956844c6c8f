package fulltext

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"campus-market/internal/cache"
	"campus-market/internal/logger"
	"campus-market/internal/metrics"
)

// Handler serves GET /api/search.
type Handler struct {
	server    Searcher
	local     Searcher
	useServer func() bool
	cache     cache.Cache
	ttl       time.Duration
	metrics   *metrics.Metrics
}

// NewHandler answers with server while useServer reports true and with
// local otherwise. Responses are cached for ttl.
func NewHandler(server, local Searcher, useServer func() bool, c cache.Cache, ttl time.Duration, m *metrics.Metrics) *Handler {
	if c == nil {
		c = cache.Noop{}
	}
	return &Handler{
		server:    server,
		local:     local,
		useServer: useServer,
		cache:     c,
		ttl:       ttl,
		metrics:   m,
	}
}

// Search handles GET /api/search?q=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := strings.TrimSpace(params.Get("q"))
	f := ParseFilters(params)
	limit, _ := strconv.Atoi(params.Get("limit"))
	limit = clampLimit(limit)

	w.Header().Set("Content-Type", "application/json")

	if !searchable(q) {
		_ = json.NewEncoder(w).Encode(Response{Products: []Result{}, Services: []Result{}, Demands: []Result{}})
		return
	}

	searcher, mode := h.local, "local"
	if h.useServer == nil || h.useServer() {
		searcher, mode = h.server, "server"
	}

	key := cache.Key("search", mode, strings.ToLower(q), f.key(), strconv.Itoa(limit))
	if body, ok := h.cache.Get(r.Context(), key); ok {
		h.metrics.CacheResult("hit")
		_, _ = w.Write(body)
		return
	}
	h.metrics.CacheResult("miss")

	resp := searcher.UniversalSearch(r.Context(), q, f, limit)
	body, err := json.Marshal(resp)
	if err != nil {
		logger.Errorf("Search encode: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !resp.degraded {
		h.cache.Set(r.Context(), key, body, h.ttl)
	}
	_, _ = w.Write(body)
}
