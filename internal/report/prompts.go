package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"curator/internal/core"
)

const maxPromptBody = 6000

type fragmentInput struct {
	ItemID      string  `json:"item_id"`
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	URL         string  `json:"url"`
	PublishTime string  `json:"publish_time"`
	Tier        string  `json:"tier"`
	EventSize   int     `json:"event_size"`
	Score       float64 `json:"composite_score"`
	Content     string  `json:"content"`
}

type paperInput struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

func fragmentPrompt(batch []*core.NewsItem, papers []core.Paper) string {
	inputs := make([]fragmentInput, 0, len(batch))
	for _, item := range batch {
		body := snippet(item.Body, maxPromptBody)
		inputs = append(inputs, fragmentInput{
			ItemID:      item.ItemID,
			Title:       item.Title,
			Source:      item.SourceName,
			URL:         item.URL,
			PublishTime: formatTimestamp(item.PublishTime),
			Tier:        string(item.Tier),
			EventSize:   item.EventSize,
			Score:       item.CompositeScore,
			Content:     body,
		})
	}
	candidates := make([]paperInput, 0, len(papers))
	for _, p := range papers {
		candidates = append(candidates, paperInput{Title: p.Title, URL: p.URL, Summary: p.Summary})
	}

	return fmt.Sprintf(`You are an analyst writing entries for an AI industry briefing.

For each news item below, write one report entry in markdown following this exact template:

### **<concise headline>**

[Read source](<url>)  `+"`<publish time>`"+`

> **Summary**: <two or three sentences on what happened and why it matters>

**Details**

- **<key point>**: <one or two sentences>
- **<key point>**: <one or two sentences>

If one of the candidate papers below is clearly relevant to the item, append a final line:
[Related paper](<paper url>)

Also assign each item to exactly one category: "Infrastructure" (compute, chips, datacenters, funding for infrastructure), "Model" (new models, training techniques, research results) or "Application" (products, agents, deployments, adoption).

Candidate papers:
%s

News items:
%s

Respond with ONLY a JSON array, one object per item:
[{"item_id": "...", "category": "...", "markdown": "..."}]`,
		mustJSON(candidates), mustJSON(inputs))
}

type highlightInput struct {
	Title  string  `json:"title"`
	Source string  `json:"source"`
	Tier   string  `json:"tier"`
	Score  float64 `json:"composite_score"`
	Gist   string  `json:"gist"`
}

func highlightsPrompt(items []*core.NewsItem) string {
	inputs := make([]highlightInput, 0, len(items))
	for _, item := range items {
		gist := item.Summary
		if gist == "" {
			gist = item.Body
		}
		gist = snippet(gist, 400)
		inputs = append(inputs, highlightInput{
			Title:  item.Title,
			Source: item.SourceName,
			Tier:   string(item.Tier),
			Score:  item.CompositeScore,
			Gist:   gist,
		})
	}

	return fmt.Sprintf(`Write the highlights list for an AI industry briefing. One line per item, most important first, in this exact format:

* **[[Tag]]** [**Title**]: one-sentence hook.

The Tag is a short topic label such as Compute, Frontier Research, Agents, Funding or Policy. Keep each hook under 25 words. Do not add anything before or after the list.

Items:
%s`, mustJSON(inputs))
}

// snippet returns at most n bytes of s, cut on a rune boundary.
func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func formatTimestamp(epoch int64) string {
	if epoch <= 0 {
		return "unknown"
	}
	return time.Unix(epoch, 0).UTC().Format("2006-01-02 15:04")
}

func trimLines(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
