// Package wiki looks up short encyclopedia summaries for questions the
// curated dataset cannot answer. Every failure (network, non-200, missing
// field) is reported as a plain miss so the QA chain can cascade to its
// sentinel; nothing here is fatal.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultLang      = "fa"
	DefaultTimeout   = 5 * time.Second
	DefaultSentences = 2
)

// Client queries a MediaWiki-compatible knowledge source.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a wiki client. An empty baseURL selects the Wikipedia edition
// for DefaultLang.
func New(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.wikipedia.org", DefaultLang)
	}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid wiki URL %q", baseURL)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}, nil
}

// Summary returns a short summary for the query, truncated to the given
// sentence count. It first resolves the query to a page title through the
// search API; if that fails it tries the query text directly as a title.
// The boolean is false when no summary could be produced.
func (c *Client) Summary(ctx context.Context, query string, sentences int) (string, bool) {
	if query == "" {
		return "", false
	}
	if sentences <= 0 {
		sentences = DefaultSentences
	}

	if title, ok := c.searchTitle(ctx, query); ok {
		if summary, ok := c.fetchSummary(ctx, title, sentences); ok {
			return summary, true
		}
	}

	return c.fetchSummary(ctx, query, sentences)
}

// searchResponse is the subset of the action API search result we read.
type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// searchTitle resolves free-form query text to the best-matching page title.
func (c *Client) searchTitle(ctx context.Context, query string) (string, bool) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", "1")
	params.Set("format", "json")

	endpoint := c.baseURL + "/w/api.php?" + params.Encode()

	var result searchResponse
	if !c.getJSON(ctx, endpoint, &result) {
		return "", false
	}
	if len(result.Query.Search) == 0 {
		return "", false
	}
	return result.Query.Search[0].Title, true
}

// summaryResponse is the subset of the REST page summary we read.
type summaryResponse struct {
	Extract string `json:"extract"`
}

// fetchSummary retrieves the REST summary for a page title and truncates its
// extract to the requested number of sentences.
func (c *Client) fetchSummary(ctx context.Context, title string, sentences int) (string, bool) {
	endpoint := c.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(title)

	var result summaryResponse
	if !c.getJSON(ctx, endpoint, &result) {
		return "", false
	}
	if result.Extract == "" {
		return "", false
	}
	return truncateSentences(result.Extract, sentences), true
}

// getJSON performs a GET and decodes the body into out. Any failure is
// logged at debug level and reported as a miss.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Debug("wiki request build failed", "url", endpoint, "error", err)
		return false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("wiki request failed", "url", endpoint, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("wiki request non-200", "url", endpoint, "status", resp.StatusCode)
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Debug("wiki response malformed", "url", endpoint, "error", err)
		return false
	}
	return true
}

// truncateSentences keeps the first n period-delimited sentences and ensures
// the result ends with a period.
func truncateSentences(extract string, n int) string {
	parts := strings.Split(extract, ".")
	if len(parts) > n {
		parts = parts[:n]
	}
	summary := strings.TrimSpace(strings.Join(parts, "."))
	if summary != "" && !strings.HasSuffix(summary, ".") {
		summary += "."
	}
	return summary
}
