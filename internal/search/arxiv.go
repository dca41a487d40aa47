package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"curator/internal/logger"
)

const arxivAPIBase = "http://export.arxiv.org/api/query"

// ArxivProvider implements Provider against the arXiv Atom API, newest
// submissions first.
type ArxivProvider struct {
	baseURL   string
	client    *http.Client
	rateLimit time.Duration // arXiv asks for a 3s gap between API calls
	lastCall  time.Time
}

// NewArxivProvider creates a new arXiv provider.
func NewArxivProvider() *ArxivProvider {
	return &ArxivProvider{
		baseURL:   arxivAPIBase,
		client:    &http.Client{Timeout: 30 * time.Second},
		rateLimit: 3 * time.Second,
	}
}

// GetName returns the name of this provider.
func (a *ArxivProvider) GetName() string {
	return "arXiv"
}

// atomFeed mirrors the slice of the arXiv Atom response we consume.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
}

// Search performs a search using the arXiv API. Queries use the arXiv
// field syntax (e.g. `all:"World Model"` or `ti:Reasoning`).
func (a *ArxivProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	// Respect rate limiting
	if elapsed := time.Since(a.lastCall); elapsed < a.rateLimit {
		time.Sleep(a.rateLimit - elapsed)
	}
	a.lastCall = time.Now()

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	fullURL := a.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create arXiv request: %w", err)
	}
	req.Header.Set("User-Agent", "curator/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute arXiv request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read arXiv response: %w", err)
	}

	results, err := parseAtomFeed(body)
	if err != nil {
		return nil, err
	}

	logger.Info("arXiv search completed", "query", query, "results_found", len(results))
	return results, nil
}

// parseAtomFeed converts an Atom response body into results.
func parseAtomFeed(body []byte) ([]Result, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arXiv response: %w", err)
	}

	var results []Result
	for _, entry := range feed.Entries {
		link := strings.TrimSpace(entry.ID)
		if link == "" {
			continue
		}
		// Entry ids occasionally come back as /api/ URLs; the abstract
		// page is the canonical form.
		link = strings.Replace(link, "/api/", "/abs/", 1)

		summary := strings.Join(strings.Fields(entry.Summary), " ")
		if len(summary) > 200 {
			summary = summary[:200] + "..."
		}

		results = append(results, Result{
			Title:     strings.Join(strings.Fields(entry.Title), " "),
			URL:       link,
			Summary:   summary,
			Published: strings.TrimSpace(entry.Published),
			Source:    "arXiv",
		})
	}
	return results, nil
}
