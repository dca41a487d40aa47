// Package references builds the Further Reading section: it proposes
// citation-search queries from the top-ranked items, merges retrieved
// papers with citation links carried on the items, and applies the fixed
// reference quota.
package references

import (
	"context"
	"fmt"
	"strings"

	"curator/internal/core"
	"curator/internal/llm"
	"curator/internal/logger"
	"curator/internal/search"
)

// fallbackQuery is used when the oracle cannot propose query strings.
const fallbackQuery = "all:Artificial Intelligence"

const (
	maxQueries      = 8
	resultsPerQuery = 5
	minQueryTargets = 5
)

// Collector issues citation-search queries derived from top-ranked items.
type Collector struct {
	oracle   llm.Completer
	provider search.Provider
}

// NewCollector creates a Collector.
func NewCollector(oracle llm.Completer, provider search.Provider) *Collector {
	return &Collector{oracle: oracle, provider: provider}
}

// CollectPapers proposes search queries from the top-ranked item titles via
// one oracle call, runs them serially against the search provider, and
// returns URL-deduplicated candidates. Search failures cost only their own
// query's results.
func (c *Collector) CollectPapers(ctx context.Context, items []*core.NewsItem) []core.Paper {
	targets := queryTargets(items)
	if len(targets) == 0 {
		return nil
	}

	titles := make([]string, 0, len(targets))
	for _, item := range targets {
		titles = append(titles, item.Title)
	}

	queries := c.proposeQueries(ctx, titles)
	logger.Info("citation search queries proposed", "count", len(queries))

	var papers []core.Paper
	seen := make(map[string]bool)

	for _, query := range queries {
		results, err := c.provider.Search(ctx, query, resultsPerQuery)
		if err != nil {
			logger.Warn("citation search failed", "query", query, "error", err.Error())
			continue
		}
		for _, res := range results {
			if res.URL == "" || seen[res.URL] {
				continue
			}
			seen[res.URL] = true
			papers = append(papers, core.Paper{
				Title:     res.Title,
				URL:       res.URL,
				Summary:   res.Summary,
				Published: res.Published,
				Source:    res.Source,
			})
		}
	}

	logger.Info("citation search done", "papers", len(papers))
	return papers
}

// queryTargets picks the items whose titles seed the queries: every S and A
// tier item, topped up from B when coverage is thin, falling back to the
// head of the ranked list.
func queryTargets(items []*core.NewsItem) []*core.NewsItem {
	var targets []*core.NewsItem
	for _, item := range items {
		if item.Tier == core.TierS || item.Tier == core.TierA {
			targets = append(targets, item)
		}
	}
	if len(targets) < minQueryTargets {
		for _, item := range items {
			if len(targets) >= minQueryTargets {
				break
			}
			if item.Tier == core.TierB {
				targets = append(targets, item)
			}
		}
	}
	if len(targets) == 0 && len(items) > 0 {
		n := minQueryTargets
		if n > len(items) {
			n = len(items)
		}
		targets = items[:n]
	}
	return targets
}

// proposeQueries asks the oracle for query strings; a failed or empty
// answer degrades to the fixed fallback query.
func (c *Collector) proposeQueries(ctx context.Context, titles []string) []string {
	response, err := c.oracle.Complete(ctx, queryPrompt(titles), 0.1)
	if err != nil {
		logger.Warn("query proposal failed, using fallback query", "error", err.Error())
		return []string{fallbackQuery}
	}

	var queries []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		line = strings.Trim(line, "`")
		line = strings.TrimPrefix(line, "search_query=")
		if line == "" {
			continue
		}
		queries = append(queries, line)
		if len(queries) == maxQueries {
			break
		}
	}
	if len(queries) == 0 {
		return []string{fallbackQuery}
	}
	return queries
}

func queryPrompt(titles []string) string {
	var list strings.Builder
	for _, t := range titles {
		list.WriteString("- ")
		list.WriteString(t)
		list.WriteString("\n")
	}

	return fmt.Sprintf(`Build a list of arXiv search query strings covering the AI news headlines below.

Headlines:
%s
Requirements:
1. Identify the core technical entity in each headline (model names like "Gemini 3", "Claude Sonnet", or terms like "World Model", "Scaling Law").
2. Build 5-8 independent query strings that together cover these topics.
3. One query string per line, using the all: or ti: prefix.
4. Examples:
all:"Gemini 3"
ti:"World Model" AND all:Genie
all:"Large Language Model" AND all:Reasoning

Return only the query strings, one per line.
`, list.String())
}
