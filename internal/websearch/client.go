// Package websearch is the Web Search Tool (C5): an HTTP client
// against a generic search API. Behaviorally grounded on
// original_source/backend/exa_search_tool.py's search_recent /
// search_educational pair; there is no search-provider SDK anywhere
// in the pack to ground a third-party client on, so the HTTP plumbing
// is stdlib net/http + encoding/json, the same hand-rolled-client
// idiom used by the corpus's OpenAI-compatible clients.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"eduassist/internal/domain"
)

// Searcher is the C5 contract: both operations are idempotent GETs
// (implemented here as POSTs carrying only query parameters, no
// state mutation) and must never return an error that aborts the
// caller — provider failures are swallowed and reported as an empty
// result, per spec §4.4.
type Searcher interface {
	SearchRecent(ctx context.Context, query string, numResults, daysBack int) []domain.WebResult
	SearchEducational(ctx context.Context, query string, numResults int) []domain.WebResult
}

// Client is the concrete HTTP-backed Searcher.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New constructs a Client with the given API key and default timeout
// (spec §4.4, default 10s).
func New(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.exa.ai"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query              string `json:"query"`
	NumResults         int    `json:"numResults"`
	Type               string `json:"type"`
	StartPublishedDate string `json:"startPublishedDate,omitempty"`
}

type searchResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		PublishedDate string  `json:"publishedDate"`
		Text          string  `json:"text"`
		Score         float64 `json:"score"`
	} `json:"results"`
}

// SearchRecent searches for information published within the last
// daysBack days. On any provider failure it logs nothing itself
// (logging is the caller's job) and returns an empty slice, so the
// retrieval state machine can continue with whatever partial results
// exist (spec §4.4, §4.5.5).
func (c *Client) SearchRecent(ctx context.Context, query string, numResults, daysBack int) []domain.WebResult {
	start := time.Now().AddDate(0, 0, -daysBack).Format("2006-01-02")
	return c.search(ctx, searchRequest{
		Query:              query,
		NumResults:         numResults,
		Type:               "auto",
		StartPublishedDate: start,
	})
}

// SearchEducational searches without a recency filter, biasing toward
// authoritative educational sources via the query itself.
func (c *Client) SearchEducational(ctx context.Context, query string, numResults int) []domain.WebResult {
	return c.search(ctx, searchRequest{
		Query:      query,
		NumResults: numResults,
		Type:       "neural",
	})
}

func (c *Client) search(ctx context.Context, reqBody searchRequest) []domain.WebResult {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}

	out := make([]domain.WebResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		out = append(out, domain.WebResult{
			Title:         r.Title,
			URL:           r.URL,
			PublishedDate: r.PublishedDate,
			Snippet:       truncate(r.Text, 400),
			Score:         r.Score,
		})
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
