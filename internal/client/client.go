// Package client talks to a campus-market server over HTTP. Its Fetcher lets
// a browse session page through a remote server the way the web client does.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"campus-market/internal/catalog"
	"campus-market/internal/fulltext"
	"campus-market/internal/listing"
	"campus-market/internal/pager"
)

// StatusError is returned for non-2xx answers.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.Code, e.Body)
}

// Client is safe for concurrent use.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{base: base, http: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) get(ctx context.Context, path string, params any, out any) error {
	u := *c.base
	u.Path += path
	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		u.RawQuery = v.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type pageParams struct {
	Limit     int    `url:"limit,omitempty"`
	Cursor    string `url:"cursor,omitempty"`
	Offset    int    `url:"offset,omitempty"`
	Sort      string `url:"sort,omitempty"`
	ForSearch bool   `url:"forSearch,omitempty"`
}

// Fetcher pages one listing kind of a remote server.
type Fetcher struct {
	c    *Client
	kind listing.Kind
}

// Listings returns a pager.Fetcher over kind.
func (c *Client) Listings(kind listing.Kind) *Fetcher {
	return &Fetcher{c: c, kind: kind}
}

func (f *Fetcher) FetchPage(ctx context.Context, req pager.Request) (pager.Page, error) {
	var page pager.Page
	err := f.c.get(ctx, "/api/"+f.kind.Plural(), pageParams{
		Limit:  req.Limit,
		Cursor: req.Cursor,
		Offset: req.Offset,
		Sort:   req.Sort,
	}, &page)
	return page, err
}

func (f *Fetcher) FetchCorpus(ctx context.Context) ([]listing.Listing, error) {
	var resp catalog.CorpusResponse
	if err := f.c.get(ctx, "/api/"+f.kind.Plural(), pageParams{ForSearch: true}, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// SearchParams are the query parameters of /api/search.
type SearchParams struct {
	Q             string   `url:"q"`
	Category      string   `url:"category,omitempty"`
	Location      string   `url:"location,omitempty"`
	Type          string   `url:"type,omitempty"`
	Status        string   `url:"status,omitempty"`
	MinCondition  int      `url:"minCondition,omitempty"`
	MaxCondition  int      `url:"maxCondition,omitempty"`
	MinPrice      *float64 `url:"minPrice,omitempty"`
	MaxPrice      *float64 `url:"maxPrice,omitempty"`
	MinExperience *float64 `url:"minExperience,omitempty"`
	Limit         int      `url:"limit,omitempty"`
}

// Search runs a universal search.
func (c *Client) Search(ctx context.Context, p SearchParams) (fulltext.Response, error) {
	var resp fulltext.Response
	err := c.get(ctx, "/api/search", p, &resp)
	return resp, err
}

type suggestParams struct {
	Q   string `url:"q"`
	Max int    `url:"max,omitempty"`
}

// Suggest returns search-box completions for q.
func (c *Client) Suggest(ctx context.Context, q string, max int) ([]string, error) {
	var resp catalog.SuggestionsResponse
	if err := c.get(ctx, "/api/suggestions", suggestParams{Q: q, Max: max}, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}
