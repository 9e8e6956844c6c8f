// Package livesearch serves header quick-search over a WebSocket. Clients
// send the search box contents on every keystroke; the server waits for the
// input to settle, searches, and only answers for the newest query.
package livesearch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"campus-market/internal/debounce"
	"campus-market/internal/fulltext"
	"campus-market/internal/logger"
	"campus-market/internal/metrics"
)

const writeTimeout = 5 * time.Second

// Request is one client frame.
type Request struct {
	Q        string `json:"q"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Message is one server frame. Seq counts the client frames received, so a
// client can tell which keystroke a result answers.
type Message struct {
	Type    string             `json:"type"`
	Seq     int                `json:"seq"`
	Query   string             `json:"query"`
	Results *fulltext.Response `json:"results,omitempty"`
}

// Handler upgrades GET /ws/search.
type Handler struct {
	searcher func() fulltext.Searcher
	wait     time.Duration
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewHandler searches with whatever searcher returns at the time of each
// search, after input has been quiet for wait.
func NewHandler(searcher func() fulltext.Searcher, wait time.Duration, m *metrics.Metrics) *Handler {
	return &Handler{
		searcher: searcher,
		wait:     wait,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

type pending struct {
	seq int
	req Request
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.With("remote", r.RemoteAddr)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		log.Debugf("live search upgrade: %v", err)
		return
	}
	defer conn.Close()
	log.Debugf("live search session opened")

	h.metrics.LiveSessionOpened()
	defer h.metrics.LiveSessionClosed()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := debounce.New(ctx, h.wait, func(ctx context.Context, p pending) func() {
		q := strings.TrimSpace(p.req.Q)
		resp := h.searcher().UniversalSearch(ctx, q, fulltext.Filters{Category: strings.ToUpper(p.req.Category)}, p.req.Limit)
		return func() {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(Message{Type: "results", Seq: p.seq, Query: q, Results: &resp}); err != nil {
				log.Debugf("live search write: %v", err)
				cancel()
			}
		}
	})
	defer d.Stop()

	for seq := 1; ; seq++ {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.Debugf("live search read: %v", err)
			}
			return
		}
		d.Trigger(pending{seq: seq, req: req})
	}
}
