package curate

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"curator/internal/core"
)

// snippet returns at most n bytes of s, cut on a rune boundary. Item bodies
// can exceed prompt budgets by orders of magnitude.
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

func filterPrompt(batch []*core.NewsItem) string {
	type entry struct {
		ItemID         string `json:"item_id"`
		Title          string `json:"title"`
		Summary        string `json:"summary"`
		ContentSnippet string `json:"content_snippet"`
		Source         string `json:"source"`
		URL            string `json:"url"`
	}
	entries := make([]entry, 0, len(batch))
	for _, item := range batch {
		entries = append(entries, entry{
			ItemID:         item.ItemID,
			Title:          item.Title,
			Summary:        item.Summary,
			ContentSnippet: snippet(item.Body, 300),
			Source:         item.SourceName,
			URL:            item.URL,
		})
	}

	return fmt.Sprintf(`You are an expert screener of AI technology news. Classify each item below.

**Keep when any of these hold:**
1. Technical progress: the core content is a concrete advance in AI models, systems, engineering, or applied capability.
2. Key areas: foundation models, training or inference methods, data engineering, AI infrastructure, agent frameworks, or related technical products.
3. Authoritative source: academic papers (e.g. arXiv), official technical blogs, official product release pages, or GitHub release notes.

**Reject when any of these hold:**
1. Business/finance: stock prices, valuations, funding, IPOs, earnings, user counts, acquisitions.
2. Market commentary: investment opinion, market sentiment, or business deals with no direct technical content.
3. Second-hand takes: personal opinion pieces, long-form pundit analysis, unsourced tweet roundups.
4. Unclear provenance: no identifiable source, anonymous forums, or chat screenshots.

**News items:**
`+"```json\n%s\n```"+`

**Output:**
Return a JSON array with one object per item:
- item_id
- filter_decision: "keep" or "reject"
- filter_reason: one-sentence justification

Example:
`+"```json"+`
[
  {"item_id": "xxx", "filter_decision": "keep", "filter_reason": "Covers a training technique breakthrough"},
  {"item_id": "yyy", "filter_decision": "reject", "filter_reason": "Mostly funding and valuation news"}
]
`+"```"+`

Return only the JSON, no extra commentary.
`, mustJSON(entries))
}

// eventDigest is the short summary of an already-known event handed back to
// the oracle so later batches can reuse earlier event ids.
type eventDigest struct {
	EventID     string
	SampleTitle string
}

func clusterPrompt(batch []*core.NewsItem, known []eventDigest) string {
	type entry struct {
		ItemID  string `json:"item_id"`
		Title   string `json:"title"`
		Summary string `json:"summary"`
		Source  string `json:"source"`
	}
	entries := make([]entry, 0, len(batch))
	for _, item := range batch {
		entries = append(entries, entry{
			ItemID:  item.ItemID,
			Title:   item.Title,
			Summary: item.Summary,
			Source:  item.SourceName,
		})
	}

	var knownInfo strings.Builder
	if len(known) > 0 {
		knownInfo.WriteString("\nEvent ids already identified (reuse when the event matches):\n")
		for _, k := range known {
			knownInfo.WriteString(fmt.Sprintf("- %s: %s...\n", k.EventID, snippet(k.SampleTitle, 50)))
		}
	}

	return fmt.Sprintf(`You are an expert at clustering AI news by event. Group the items below semantically.

**Clustering rules:**
- Group by "same technical event / model version / product launch / key paper".
- Items describing the same event (the same model release, the same paper, the same breakthrough) share one event_id.
- event_id is a meaningful English slug joined with underscores, e.g. gpt5_release, llama3_1_opensource.
- When an item matches one of the already-identified events, reuse that exact event_id instead of minting a new one.
%s
**News items:**
`+"```json\n%s\n```"+`

**Output:**
Return a JSON array with one object per item:
- item_id
- event_id

Example:
`+"```json"+`
[
  {"item_id": "xxx", "event_id": "gpt5_release"},
  {"item_id": "yyy", "event_id": "llama3_1_opensource"}
]
`+"```"+`

Return only the JSON, no extra commentary.
`, knownInfo.String(), mustJSON(entries))
}

func dedupPrompt(eventID string, group []*core.NewsItem, keepPerEvent int) string {
	type entry struct {
		ItemID      string `json:"item_id"`
		Title       string `json:"title"`
		Summary     string `json:"summary"`
		Source      string `json:"source"`
		URL         string `json:"url"`
		PublishTime string `json:"publish_time"`
	}
	entries := make([]entry, 0, len(group))
	for _, item := range group {
		entries = append(entries, entry{
			ItemID:      item.ItemID,
			Title:       item.Title,
			Summary:     item.Summary,
			Source:      item.SourceName,
			URL:         item.URL,
			PublishTime: formatTimestamp(item.PublishTime),
		})
	}

	return fmt.Sprintf(`You are an expert at deduplicating AI news. The items below all describe the same event. Keep at most %d, the most authoritative with the highest information quality.

**Authority ranking (highest first):**
1. Official primary source: vendor announcement, official blog, arXiv paper, GitHub release.
2. Principal commentary: deep dives by the authors, core engineers, or official researchers.
3. Credentialed media: fast, faithful re-reporting of the above.
4. Social re-posting: lowest priority.

**Event id:** %s

**Items:**
`+"```json\n%s\n```"+`

**Output:**
Keep at most %d items (when the group has %d or fewer you may keep them all) and mark the rest as dropped. Return a JSON array:
- item_id
- dedup_decision: "keep" or "drop"
- dedup_reason: one-sentence justification

Example:
`+"```json"+`
[
  {"item_id": "xxx", "dedup_decision": "keep", "dedup_reason": "Official blog first publication"},
  {"item_id": "yyy", "dedup_decision": "drop", "dedup_reason": "Second-hand re-reporting"}
]
`+"```"+`

Return only the JSON, no extra commentary.
`, keepPerEvent, eventID, mustJSON(entries), keepPerEvent, keepPerEvent)
}

func rankPrompt(batch []*core.NewsItem) string {
	type entry struct {
		ItemID    string `json:"item_id"`
		Title     string `json:"title"`
		Summary   string `json:"summary"`
		Source    string `json:"source"`
		EventSize int    `json:"event_size"`
	}
	entries := make([]entry, 0, len(batch))
	for _, item := range batch {
		entries = append(entries, entry{
			ItemID:    item.ItemID,
			Title:     item.Title,
			Summary:   item.Summary,
			Source:    item.SourceName,
			EventSize: item.EventSize,
		})
	}

	return fmt.Sprintf(`You are an expert assessor of AI technology impact. Score each news item below.

**Scoring axes:**

1. **tech_impact** [1-5]:
   - 5 (paradigm shift): new architecture or theory that could redirect a field (e.g. the Transformer)
   - 4 (major breakthrough): a big jump in a key capability, or a strong open-sourced foundation model
   - 3 (significant improvement): an important refinement of existing methods, or a very useful tool or framework
   - 2 (routine optimization): small performance gain or a regular version bump
   - 1 (minor change): incremental update

2. **industry_scope** [1-5]:
   - 5 (whole industry): affects nearly every AI developer and company
   - 4 (multiple domains): affects several major application areas (e.g. NLP and CV)
   - 3 (one vertical): deeply affects one vertical (e.g. AI for Science)
   - 2 (specific tasks): affects one or a few concrete tasks
   - 1 (niche): very limited reach

**News items:**
`+"```json\n%s\n```"+`

**Output:**
Return a JSON array with one object per item:
- item_id
- tech_impact: 1-5
- industry_scope: 1-5

Example:
`+"```json"+`
[
  {"item_id": "xxx", "tech_impact": 5, "industry_scope": 5},
  {"item_id": "yyy", "tech_impact": 3, "industry_scope": 3}
]
`+"```"+`

Return only the JSON, no extra commentary.
`, mustJSON(entries))
}

// formatTimestamp renders an epoch for prompt and report use.
func formatTimestamp(epoch int64) string {
	return time.Unix(epoch, 0).Format("2006-01-02 15:04")
}
