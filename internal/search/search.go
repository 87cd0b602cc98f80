// Package search finds government schemes and legal aid contacts through
// DuckDuckGo's HTML results page. There is no official API; the page layout
// (result__a links, result__snippet text) is stable enough to parse.
package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/vaanicare/vaanicare/internal/models"
)

// Disclaimer accompanies every scheme search response.
const Disclaimer = "Final eligibility is determined by the concerned government department."

const defaultBaseURL = "https://html.duckduckgo.com/html/"

// maxResultsPerQuery caps how many results one query contributes.
const maxResultsPerQuery = 5

// Opts holds configurable search client options.
type Opts struct {
	HTTPClient *http.Client
	BaseURL    string
}

// Option configures the search client.
type Option func(*Opts)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// WithBaseURL overrides the DuckDuckGo endpoint.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// Client queries DuckDuckGo and parses the HTML results page.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a search client.
func NewClient(opts ...Option) *Client {
	cfg := Opts{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		BaseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{httpClient: cfg.HTTPClient, baseURL: cfg.BaseURL}
}

// FindSchemes runs profile-derived queries and merges the results,
// deduplicated by URL. Each result carries the query that produced it.
func (c *Client) FindSchemes(ctx context.Context, profile models.SchemeProfile) ([]models.SearchResult, error) {
	queries := schemeQueries(profile)

	var merged []models.SearchResult
	seen := make(map[string]bool)
	for _, q := range queries {
		results, err := c.search(ctx, q)
		if err != nil {
			slog.Error("Search scheme query failed", "error", err, "query", q)
			continue
		}
		for _, r := range results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			r.SourceQuery = q
			merged = append(merged, r)
		}
	}
	if merged == nil && len(queries) > 0 {
		slog.Warn("Search returned no schemes", "state", profile.State)
	}
	return merged, nil
}

// FindLawyers searches for legal aid contacts for an issue in a location.
func (c *Client) FindLawyers(ctx context.Context, issue, location string) ([]models.SearchResult, error) {
	query := fmt.Sprintf("free legal aid lawyer for %s in %s India", issue, location)
	results, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].SourceQuery = query
	}
	return results, nil
}

// schemeQueries derives search queries from the parts of the profile that
// were actually collected.
func schemeQueries(profile models.SchemeProfile) []string {
	var queries []string
	if profile.Occupation != "" {
		queries = append(queries, fmt.Sprintf("government schemes for %s in %s India", profile.Occupation, profile.State))
	}
	if profile.Category != "" && !strings.EqualFold(profile.Category, "general") {
		queries = append(queries, fmt.Sprintf("%s category government welfare schemes %s", profile.Category, profile.State))
	}
	if profile.Gender != "" {
		queries = append(queries, fmt.Sprintf("government schemes for %s age %s %s India", profile.Gender, profile.Age, profile.State))
	}
	if len(queries) == 0 {
		queries = append(queries, fmt.Sprintf("government welfare schemes %s India", profile.State))
	}
	return queries
}

func (c *Client) search(ctx context.Context, query string) ([]models.SearchResult, error) {
	reqURL := c.baseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	// DuckDuckGo serves a bot-check page to clients without a browser UA.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	results, err := parseResults(resp.Body)
	if err != nil {
		return nil, err
	}
	slog.Debug("Search query completed", "query", query, "results", len(results))
	return results, nil
}

// parseResults walks the results page for result__a links and their
// result__snippet siblings.
func parseResults(r io.Reader) ([]models.SearchResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var results []models.SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResultsPerQuery {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result__a") {
			title := strings.TrimSpace(textContent(n))
			href := resolveRedirect(attr(n, "href"))
			if title != "" && href != "" {
				results = append(results, models.SearchResult{Title: title, URL: href})
			}
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result__snippet") {
			if len(results) > 0 && results[len(results)-1].Snippet == "" {
				results[len(results)-1].Snippet = strings.TrimSpace(textContent(n))
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links to the
// target URL.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, part := range strings.Fields(attr(n, "class")) {
		if part == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(textContent(child))
	}
	return b.String()
}
