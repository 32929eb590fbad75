// Package webclient implements the Search & Scrape Adapter (spec.md §4.C3):
// querying an external search API for candidate URLs and fetching/cleaning
// HTML for a single page. Grounded on pkg/runbook/github.go's GitHubClient —
// a bounded http.Client, context-aware requests, explicit status handling —
// generalized from a GitHub-specific client to a generic search+scrape one.
package webclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Sentinel errors returned by Search and Scrape (spec.md §4.C3).
var (
	ErrSearchUnavailable = errors.New("webclient: search unavailable")
	ErrScrapeTimeout     = errors.New("webclient: scrape timeout")
	ErrScrapeHTTP        = errors.New("webclient: scrape http error")
	ErrScrapeFormat      = errors.New("webclient: scrape format error")
)

// Result is one search hit.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Page is the cleaned output of a scrape.
type Page struct {
	Title         string
	TextContent   string
	StatusMessage string
}

// Client is the Search & Scrape Adapter. Safe for concurrent use — the
// underlying http.Client is concurrency-safe and Client holds no mutable
// state of its own.
type Client struct {
	httpClient    *http.Client
	searchAPIAddr string
	searchTimeout time.Duration
	scrapeTimeout time.Duration
	maxChars      int
}

// Options configures a Client.
type Options struct {
	SearchAPIAddr string
	SearchTimeout time.Duration
	ScrapeTimeout time.Duration
	// MaxCharacters is the scrape soft cap (spec default 10000).
	MaxCharacters int
}

// New builds a Search & Scrape Adapter client.
func New(opts Options) *Client {
	return &Client{
		httpClient:    &http.Client{},
		searchAPIAddr: opts.SearchAPIAddr,
		searchTimeout: opts.SearchTimeout,
		scrapeTimeout: opts.ScrapeTimeout,
		maxChars:      opts.MaxCharacters,
	}
}

type searchAPIResponse struct {
	Results []Result `json:"results"`
}

// Search queries the external search API for query, returning up to
// maxResults ordered {url, title, snippet} hits. Fails with
// ErrSearchUnavailable on any transport/HTTP/decode failure — the caller
// (C9 orchestrator) decides the fallback-lead behavior.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", query)
	q.Set("max_results", strconv.Itoa(maxResults))
	reqURL := fmt.Sprintf("%s/search?%s", c.searchAPIAddr, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSearchUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search API returned HTTP %d", ErrSearchUnavailable, resp.StatusCode)
	}

	var parsed searchAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchUnavailable, err)
	}

	if len(parsed.Results) > maxResults {
		parsed.Results = parsed.Results[:maxResults]
	}
	return parsed.Results, nil
}

// Scrape fetches url and returns cleaned page text. On transport or HTTP
// failure it returns an error carrying a StatusMessage describing what went
// wrong — the calling stage decides whether to continue with reduced
// information (spec.md §4.C3).
func (c *Client) Scrape(ctx context.Context, url string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, c.scrapeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrScrapeFormat, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrScrapeTimeout, url, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrScrapeHTTP, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrScrapeHTTP, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrScrapeFormat, err)
	}

	title, text := CleanHTML(string(body))
	text, truncated := truncate(text, c.maxChars)
	status := "ok"
	if truncated {
		status = "truncated to max character cap"
	}

	return &Page{Title: title, TextContent: text, StatusMessage: status}, nil
}

// truncate caps s to n characters, appending an explicit marker when cut.
func truncate(s string, n int) (string, bool) {
	if n <= 0 || len(s) <= n {
		return s, false
	}
	return s[:n] + "\n[... truncated ...]", true
}

