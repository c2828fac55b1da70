// Package search queries the Brave web search API and formats results for the
// salary, company and industry tools.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the Brave web search API.
	DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"
	// DefaultTimeout bounds every search request.
	DefaultTimeout = 30 * time.Second

	summaryItems = 3
)

// Item is a single search hit.
type Item struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Response pairs the hits of one query with a short summary built from them.
type Response struct {
	Items   []Item
	Summary string
}

// NetworkError reports a failed request to the search provider.
type NetworkError struct {
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("网络请求失败: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("网络请求失败: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

type httpDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client calls the search provider. A Client without an API key runs in
// degraded mode and answers every query with a labelled simulated result.
type Client struct {
	apiKey   string
	endpoint string
	http     httpDoer
}

// Option customises a Client.
type Option func(*Client)

// WithEndpoint overrides the search URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(doer httpDoer) Option {
	return func(c *Client) { c.http = doer }
}

// NewClient returns a Client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Simulated reports whether the client has no credential and returns
// simulated results.
func (c *Client) Simulated() bool {
	return c.apiKey == ""
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs query and returns at most count items. The summary joins the
// first three items as "title: snippet" lines when wantSummary is set.
func (c *Client) Search(ctx context.Context, query string, count int, wantSummary bool) (Response, error) {
	if c.Simulated() {
		return Response{
			Summary: fmt.Sprintf("搜索 '%s' 的结果（模拟）:\n\n由于未配置 BRAVE_API_KEY，这里显示模拟搜索结果。", query),
		}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("web_search 失败: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		return Response{}, &NetworkError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return Response{}, &NetworkError{
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("%s: %s", res.Status, strings.TrimSpace(string(body))),
		}
	}

	var data braveResponse
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return Response{}, fmt.Errorf("web_search 失败: decode response: %w", err)
	}

	results := data.Web.Results
	if count >= 0 && len(results) > count {
		results = results[:count]
	}
	items := make([]Item, 0, len(results))
	for _, r := range results {
		items = append(items, Item{Title: r.Title, Snippet: r.Description, URL: r.URL})
	}

	out := Response{Items: items}
	if wantSummary {
		out.Summary = summarize(items)
	}
	slog.Debug("web search", "query", query, "items", len(items))
	return out, nil
}

func summarize(items []Item) string {
	if len(items) > summaryItems {
		items = items[:summaryItems]
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s: %s", item.Title, item.Snippet)
	}
	return strings.Join(parts, "\n")
}
