package report

import (
	"fmt"
	"strings"
	"time"

	"curator/internal/core"
	"curator/internal/references"
)

const emptySection = "*No entries this period.*"

// Reader-facing Further Reading group names per body category.
var categoryTags = map[string]string{
	CategoryInfrastructure: "Infrastructure",
	CategoryModel:          "Models & Research",
	CategoryApplication:    "Applications",
}

// assemble stitches the highlights, category sections and reference list
// into the final markdown document.
func (s *Synthesizer) assemble(items, body []*core.NewsItem, fragments []Fragment, highlights string, papers []core.Paper) string {
	var b strings.Builder

	start, end := dateRange(body)
	fmt.Fprintf(&b, "# %s (%s to %s)\n\n", s.cfg.Title, start, end)

	if highlights != "" {
		b.WriteString("## Highlights\n\n")
		b.WriteString(trimLines(highlights))
		b.WriteString("\n\n")
	}
	b.WriteString("---\n\n")

	sections := []struct {
		header   string
		category string
	}{
		{"## 1. Infrastructure", CategoryInfrastructure},
		{"## 2. Model & Techniques", CategoryModel},
		{"## 3. Applications & Agents", CategoryApplication},
	}
	for _, section := range sections {
		b.WriteString(section.header)
		b.WriteString("\n\n")
		count := 0
		for _, frag := range fragments {
			if frag.Category != section.category {
				continue
			}
			b.WriteString(trimLines(frag.Markdown))
			b.WriteString("\n\n")
			count++
		}
		if count == 0 {
			b.WriteString(emptySection)
			b.WriteString("\n\n")
		}
	}

	usedURLs := make(map[string]bool)
	for _, frag := range fragments {
		for _, url := range ExtractLinks(frag.Markdown) {
			usedURLs[url] = true
		}
	}
	titleTags := HighlightTags(highlights)
	categories := make(map[string]string, len(fragments))
	for _, frag := range fragments {
		categories[frag.ItemID] = categoryTags[frag.Category]
	}

	groups := references.BuildList(papers, items, usedURLs, titleTags, categories, s.cfg.Quota)
	if len(groups) > 0 {
		b.WriteString("## Further Reading\n\n")
		for _, group := range groups {
			fmt.Fprintf(&b, "### %s\n\n", group.Tag)
			for _, ref := range group.Refs {
				if ref.Label != "" {
					fmt.Fprintf(&b, "- [%s](%s) (%s)\n", ref.Title, ref.URL, ref.Label)
				} else {
					fmt.Fprintf(&b, "- [%s](%s)\n", ref.Title, ref.URL)
				}
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// dateRange returns the earliest and latest publish dates across the body
// items, formatted for the report title.
func dateRange(body []*core.NewsItem) (string, string) {
	var min, max int64
	for _, item := range body {
		if item.PublishTime <= 0 {
			continue
		}
		if min == 0 || item.PublishTime < min {
			min = item.PublishTime
		}
		if item.PublishTime > max {
			max = item.PublishTime
		}
	}
	if min == 0 {
		today := time.Now().UTC().Format("2006-01-02")
		return today, today
	}
	const layout = "2006-01-02"
	return time.Unix(min, 0).UTC().Format(layout), time.Unix(max, 0).UTC().Format(layout)
}
