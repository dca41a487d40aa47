// Package ingest normalizes raw store records from heterogeneous sources
// into the single NewsItem shape the pipeline works with.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"curator/internal/core"
	"curator/internal/logger"

	"github.com/PuerkitoBio/goquery"
)

// NewsItemFromRecord builds a NewsItem from one raw store record. The item
// id is prefixed with the source table so ids from different tables never
// collide within a run.
func NewsItemFromRecord(rec core.RawRecord) *core.NewsItem {
	item := &core.NewsItem{
		ItemID:      fmt.Sprintf("%s_%s", rec.SourceTable, rec.OriginalID),
		OriginalID:  rec.OriginalID,
		SourceTable: rec.SourceTable,
		Title:       strings.TrimSpace(rec.Title),
		Summary:     strings.TrimSpace(rec.Summary),
		Body:        normalizeBody(rec.Body),
		URL:         rec.URL,
		SourceName:  rec.SourceName,
		PublishTime: rec.PublishTime,
	}
	item.CitationLinks = parseCitationLinks(rec.CitationLinks, item.ItemID)
	return item
}

// Normalize converts a batch of raw records into the working item set.
func Normalize(records []core.RawRecord) []*core.NewsItem {
	items := make([]*core.NewsItem, 0, len(records))
	for _, rec := range records {
		items = append(items, NewsItemFromRecord(rec))
	}
	return items
}

// normalizeBody strips markup from article bodies. Scraping adapters for
// some sources store raw HTML, others plain text.
func normalizeBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if !strings.Contains(trimmed, "<") || !strings.Contains(trimmed, ">") {
		return trimmed
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		// goquery is tolerant; a hard failure means the body was not
		// really HTML. Use it as-is.
		return trimmed
	}

	doc.Find("script, style, noscript").Remove()
	text := doc.Text()

	// Collapse runs of whitespace left behind by removed tags.
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}

// parseCitationLinks decodes the JSON blob scraped alongside an article.
// Blobs are untrusted; a malformed one costs the item its citations, not
// the run.
func parseCitationLinks(raw, itemID string) []core.CitationLink {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	// Scrapers for older sources used "type" for the reference kind.
	var decoded []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Kind  string `json:"kind"`
		Type  string `json:"type"`
	}
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		logger.Warn("unparsable citation links, dropping", "item_id", itemID)
		return nil
	}

	links := make([]core.CitationLink, 0, len(decoded))
	for _, d := range decoded {
		if d.URL == "" {
			continue
		}
		kind := d.Kind
		if kind == "" {
			kind = d.Type
		}
		if kind == "" {
			kind = "Reference"
		}
		title := d.Title
		if title == "" {
			title = "Ref"
		}
		links = append(links, core.CitationLink{Title: title, URL: d.URL, Kind: kind})
	}
	return links
}
