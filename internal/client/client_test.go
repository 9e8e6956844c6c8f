package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-market/internal/listing"
	"campus-market/internal/pager"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	c, err := New(ts.URL+"/", WithToken("tok"))
	require.NoError(t, err)
	return c
}

func TestNewRequiresAbsoluteURL(t *testing.T) {
	_, err := New("localhost")
	assert.Error(t, err)
}

func TestFetchPage(t *testing.T) {
	var got *http.Request
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_ = json.NewEncoder(w).Encode(pager.Page{
			Items:      []listing.Listing{{ID: "p1", Kind: listing.KindProduct, Title: "Lamp"}},
			HasMore:    true,
			NextCursor: "abc",
		})
	})

	page, err := c.Listings(listing.KindProduct).FetchPage(context.Background(), pager.Request{Limit: 20, Cursor: "xyz"})
	require.NoError(t, err)

	assert.Equal(t, "/api/products", got.URL.Path)
	assert.Equal(t, "cursor=xyz&limit=20", got.URL.RawQuery)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.True(t, page.HasMore)
	assert.Equal(t, "abc", page.NextCursor)
	require.Len(t, page.Items, 1)
}

func TestFetchCorpus(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/demands", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("forSearch"))
		_, _ = w.Write([]byte(`{"items":[{"id":"d1","kind":"demand","title":"Need"}]}`))
	})

	items, err := c.Listings(listing.KindDemand).FetchCorpus(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "d1", items[0].ID)
}

func TestSearchEncodesFilters(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "category=BOOKS&maxPrice=50&q=calculus", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"products":[{"id":"p1","kind":"product","title":"Calculus","rank":0.7}],"services":[],"demands":[],"total":1}`))
	})

	resp, err := c.Search(context.Background(), SearchParams{Q: "calculus", Category: "BOOKS", MaxPrice: listing.Float(50)})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 0.7, resp.Products[0].Rank)
}

func TestSuggest(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "max=3&q=ca", r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"suggestions":["calculus","camera"]}`))
	})

	got, err := c.Suggest(context.Background(), "ca", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"calculus", "camera"}, got)
}

func TestStatusError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid cursor", http.StatusBadRequest)
	})

	_, err := c.Listings(listing.KindService).FetchPage(context.Background(), pager.Request{Cursor: "bad"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "invalid cursor", se.Body)
}
