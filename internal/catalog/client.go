// Package catalog queries the public Deezer search API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ytget/rip-bot/internal/logging"
	"github.com/ytget/rip-bot/internal/metrics"
	"github.com/ytget/rip-bot/internal/model"
)

const (
	DefaultBaseURL = "https://api.deezer.com"
	DefaultTimeout = 30 * time.Second

	// ResultLimit is both the page size requested and the hard cap applied
	ResultLimit = 10
)

// Searcher looks up catalog items by free text.
type Searcher interface {
	Search(ctx context.Context, query string) []model.SearchResult
}

// Client is a Deezer search client. The zero value is not usable; use NewClient.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL (DefaultBaseURL if empty)
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Data []searchItem `json:"data"`
}

type searchItem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Link   string `json:"link"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
}

// Search performs one GET against the search endpoint and returns at most
// ResultLimit results in API order. An unreachable API, a non-200 status and
// an undecodable body all yield an empty result: callers treat them the same
// as "nothing found".
func (c *Client) Search(ctx context.Context, query string) []model.SearchResult {
	results, err := c.search(ctx, query)
	if err != nil {
		logging.WithContext(ctx).Warn("catalog search failed",
			logging.String("query", query),
			logging.Err(err))
		metrics.RecordSearch(metrics.SearchUnreachable)
		return nil
	}
	if len(results) == 0 {
		metrics.RecordSearch(metrics.SearchEmpty)
	} else {
		metrics.RecordSearch(metrics.SearchHit)
	}
	return results
}

func (c *Client) search(ctx context.Context, query string) ([]model.SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&limit=%d", c.baseURL, url.QueryEscape(query), ResultLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deezer search failed: %s", resp.Status)
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode deezer response: %w", err)
	}

	items := data.Data
	if len(items) > ResultLimit {
		items = items[:ResultLimit]
	}
	results := make([]model.SearchResult, 0, len(items))
	for _, item := range items {
		results = append(results, model.SearchResult{
			Kind:       model.Kind(item.Type),
			Title:      item.Title,
			ArtistName: item.Artist.Name,
			Link:       item.Link,
		})
	}
	return results, nil
}
