package core

import "time"

// Decision is a stage verdict attached to a NewsItem. The zero value means
// the stage has not processed the item yet.
type Decision string

const (
	DecisionUnset  Decision = ""
	DecisionKeep   Decision = "keep"
	DecisionReject Decision = "reject" // filter stage
	DecisionDrop   Decision = "drop"   // dedup stage
)

// Tier is the discrete quality bucket derived from the composite score.
type Tier string

const (
	TierS Tier = "S"
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// CitationLink is a structured reference carried by a scraped article
// (paper, repo, official blog post).
type CitationLink struct {
	Title string `json:"title"` // Display title of the reference
	URL   string `json:"url"`   // Reference URL
	Kind  string `json:"kind"`  // Reference kind (e.g. "Paper", "GitHub", "Blog")
}

// RawRecord is a row fetched from one of the store's source tables. It
// carries enough to build a NewsItem plus the back-reference needed for
// later deletion.
type RawRecord struct {
	OriginalID    string // Primary key within the source table
	SourceTable   string // Table the record came from
	SourceName    string // Human-readable source (e.g. "OpenAI", "QbitAI")
	Title         string
	Summary       string
	Body          string // Article body, possibly HTML
	URL           string
	PublishTime   int64  // Epoch seconds
	CitationLinks string // JSON-encoded []CitationLink, may be empty
}

// NewsItem is the unit of work flowing through the pipeline. It is created
// during ingestion and mutated exactly once per stage, in stage order.
type NewsItem struct {
	ItemID      string `json:"item_id"`      // Globally unique across sources within a run
	OriginalID  string `json:"original_id"`  // Source-table primary key for store deletion
	SourceTable string `json:"source_table"` // Source table for store deletion

	Title         string         `json:"title"`
	Summary       string         `json:"summary"`
	Body          string         `json:"body"`
	URL           string         `json:"url"`
	SourceName    string         `json:"source_name"`
	PublishTime   int64          `json:"publish_time"` // Epoch seconds
	CitationLinks []CitationLink `json:"citation_links,omitempty"`

	// Filter stage annotations
	FilterDecision Decision `json:"filter_decision"`
	FilterReason   string   `json:"filter_reason"`

	// Cluster stage annotations
	EventID   string `json:"event_id"`   // Empty until assigned, never reassigned within a run
	EventSize int    `json:"event_size"` // Count of items sharing EventID at ranking time

	// Dedup stage annotations
	DedupDecision Decision `json:"dedup_decision"`
	DedupReason   string   `json:"dedup_reason"`

	// Rank stage annotations
	TechImpact     int     `json:"tech_impact"`     // 1-5
	IndustryScope  int     `json:"industry_scope"`  // 1-5
	HypeScore      int     `json:"hype_score"`      // 1-5, deterministic function of EventSize
	CompositeScore float64 `json:"composite_score"`
	Tier           Tier    `json:"tier"`
}

// Paper is a candidate citation retrieved from the search collaborator.
type Paper struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
	Source    string `json:"source"` // Provider name (e.g. "arXiv")
}

// Tier thresholds on the composite score.
const (
	TierSThreshold = 4.2
	TierAThreshold = 3.5
	TierBThreshold = 2.8
)

// TierFor maps a composite score to its tier. This is the only way a tier
// is ever assigned; the oracle never sets it directly.
func TierFor(score float64) Tier {
	switch {
	case score >= TierSThreshold:
		return TierS
	case score >= TierAThreshold:
		return TierA
	case score >= TierBThreshold:
		return TierB
	default:
		return TierC
	}
}

// HypeScoreFor buckets an event size into a 1-5 hype score. Computed in
// code rather than requested from the oracle.
func HypeScoreFor(eventSize int) int {
	switch {
	case eventSize > 20:
		return 5
	case eventSize > 10:
		return 4
	case eventSize > 5:
		return 3
	case eventSize > 2:
		return 2
	default:
		return 1
	}
}

// CompositeScore computes the weighted composite of the three ranking axes.
func CompositeScore(techImpact, industryScope, hypeScore int) float64 {
	return float64(techImpact)*0.5 + float64(industryScope)*0.3 + float64(hypeScore)*0.2
}

// PublishedAt returns the item's publish time as a time.Time.
func (n *NewsItem) PublishedAt() time.Time {
	return time.Unix(n.PublishTime, 0)
}
