package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-market/internal/catalog"
	"campus-market/internal/fulltext"
	"campus-market/internal/listing"
	"campus-market/internal/pager"
)

var created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	products := []listing.Listing{
		{ID: "p1", Kind: listing.KindProduct, Title: "Calculus textbook", Category: "BOOKS",
			Price: listing.Float(40), OriginalPrice: listing.Float(80), Condition: 4, CreatedAt: created},
		{ID: "p2", Kind: listing.KindProduct, Title: "Desk lamp", Category: "FURNITURE",
			Price: listing.Float(0), Condition: 3, CreatedAt: created},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if r.URL.Query().Get("forSearch") == "true" {
			_ = json.NewEncoder(w).Encode(catalog.CorpusResponse{Items: products})
			return
		}
		_ = json.NewEncoder(w).Encode(pager.Page{Items: products[:1], HasMore: true, NextCursor: "c1"})
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lamp", r.URL.Query().Get("q"))
		assert.Equal(t, "FURNITURE", r.URL.Query().Get("category"))
		_ = json.NewEncoder(w).Encode(fulltext.Response{
			Products: []fulltext.Result{{Listing: products[1], Rank: 1}},
			Services: []fulltext.Result{},
			Demands:  []fulltext.Result{},
			Total:    1,
		})
	})
	mux.HandleFunc("/api/suggestions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("max"))
		_ = json.NewEncoder(w).Encode(catalog.SuggestionsResponse{Suggestions: []string{"calculus", "calculator"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	srv := fakeServer(t)
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	argv := append([]string{"marketctl", "--server", srv.URL, "--token", "secret"}, args...)
	err := app.Run(context.Background(), argv)
	return out.String(), err
}

func TestBrowseFirstPage(t *testing.T) {
	out, err := run(t, "browse", "--kind", "products")
	require.NoError(t, err)
	assert.Contains(t, out, "products (1)")
	assert.Contains(t, out, "Calculus textbook")
	assert.Contains(t, out, "40 (-50%)")
	assert.Contains(t, out, "more available")
}

func TestBrowseWithFilters(t *testing.T) {
	out, err := run(t, "browse", "--query", "category=furniture")
	require.NoError(t, err)
	assert.Contains(t, out, "products (1)")
	assert.Contains(t, out, "Desk lamp")
	assert.Contains(t, out, "free")
	assert.NotContains(t, out, "Calculus")
	assert.Contains(t, out, "filters: category=furniture")
	assert.NotContains(t, out, "more available")
}

func TestBrowseRejectsUnknownKind(t *testing.T) {
	_, err := run(t, "browse", "--kind", "pets")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	out, err := run(t, "search", "--category", "FURNITURE", "lamp")
	require.NoError(t, err)
	assert.Contains(t, out, "products (1)")
	assert.Contains(t, out, "Desk lamp")
	assert.Contains(t, out, "services (0)")
	assert.Contains(t, out, "1 results")
}

func TestSearchNeedsQuery(t *testing.T) {
	_, err := run(t, "search")
	assert.Error(t, err)
}

func TestSuggest(t *testing.T) {
	out, err := run(t, "suggest", "--max", "2", "calc")
	require.NoError(t, err)
	assert.Equal(t, "calculus\ncalculator\n", out)
}
