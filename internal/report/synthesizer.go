package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"curator/internal/core"
	"curator/internal/llm"
	"curator/internal/logger"
	"curator/internal/references"
)

// Report body categories. Every fragment lands in exactly one of these.
const (
	CategoryInfrastructure = "Infrastructure"
	CategoryModel          = "Model"
	CategoryApplication    = "Application"
)

const (
	minBodyItems  = 5
	maxHighlights = 10
)

// Fragment is one synthesized report entry tied back to its source item.
type Fragment struct {
	ItemID   string `json:"item_id"`
	Category string `json:"category"`
	Markdown string `json:"markdown"`
}

func (f Fragment) Key() string { return f.ItemID }

// Config controls batching, retries and document framing for synthesis.
type Config struct {
	Title       string
	BatchSize   int
	MaxRetries  int
	Pause       time.Duration
	Temperature float32
	Quota       references.Quota
}

// DefaultConfig returns the synthesis settings used by the report command.
func DefaultConfig() Config {
	return Config{
		Title:       "AI Frontier Briefing",
		BatchSize:   5,
		MaxRetries:  5,
		Pause:       time.Second,
		Temperature: 0.3,
		Quota:       references.DefaultQuota(),
	}
}

// Synthesizer turns a ranked working set into a complete markdown report.
type Synthesizer struct {
	oracle llm.Completer
	cfg    Config
}

func New(oracle llm.Completer, cfg Config) *Synthesizer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &Synthesizer{oracle: oracle, cfg: cfg}
}

// Synthesize produces the full report document from the ranked items and the
// collected paper candidates.
func (s *Synthesizer) Synthesize(ctx context.Context, items []*core.NewsItem, papers []core.Paper) (string, error) {
	body := selectBodyItems(items)
	if len(body) == 0 {
		return "", fmt.Errorf("no items eligible for the report body")
	}

	fragments, err := s.generateFragments(ctx, body, papers)
	if err != nil {
		return "", err
	}
	if len(fragments) == 0 {
		logger.Warn("No fragments survived generation, assembling placeholder report")
	}

	highlightItems := selectHighlightItems(items, body)
	highlights := s.generateHighlights(ctx, highlightItems)

	return s.assemble(items, body, fragments, highlights, papers), nil
}

// selectBodyItems picks the items that get a full report entry. Tiers S, A
// and B always qualify; when that leaves fewer than five entries the best C
// items round out the list.
func selectBodyItems(items []*core.NewsItem) []*core.NewsItem {
	sorted := make([]*core.NewsItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompositeScore > sorted[j].CompositeScore
	})

	var body, rest []*core.NewsItem
	for _, item := range sorted {
		if item.Tier == core.TierC {
			rest = append(rest, item)
		} else {
			body = append(body, item)
		}
	}
	for len(body) < minBodyItems && len(rest) > 0 {
		body = append(body, rest[0])
		rest = rest[1:]
	}
	sort.SliceStable(body, func(i, j int) bool {
		return body[i].CompositeScore > body[j].CompositeScore
	})
	return body
}

// selectHighlightItems picks up to ten items for the highlights list,
// starting from the body items and backfilling from the remaining pool in
// score order.
func selectHighlightItems(items, body []*core.NewsItem) []*core.NewsItem {
	picked := make([]*core.NewsItem, 0, maxHighlights)
	inBody := make(map[string]bool, len(body))
	for _, item := range body {
		if len(picked) < maxHighlights {
			picked = append(picked, item)
			inBody[item.ItemID] = true
		}
	}
	if len(picked) >= maxHighlights {
		return picked
	}

	rest := make([]*core.NewsItem, 0, len(items))
	for _, item := range items {
		if !inBody[item.ItemID] {
			rest = append(rest, item)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].CompositeScore > rest[j].CompositeScore
	})
	for _, item := range rest {
		if len(picked) >= maxHighlights {
			break
		}
		picked = append(picked, item)
	}
	return picked
}

// generateFragments runs the body items through the oracle in batches. Each
// batch gets one generation call plus at most one repair round for fragments
// that fail the structural checks.
func (s *Synthesizer) generateFragments(ctx context.Context, body []*core.NewsItem, papers []core.Paper) ([]Fragment, error) {
	byID := make(map[string]*core.NewsItem, len(body))
	for _, item := range body {
		byID[item.ItemID] = item
	}

	var fragments []Fragment
	for start := 0; start < len(body); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(body) {
			end = len(body)
		}
		batch := body[start:end]

		prompt := fragmentPrompt(batch, papers)
		records, err := s.completeBatch(ctx, prompt)
		if err != nil {
			logger.Error("Fragment batch failed, skipping", err, "batch_start", start, "batch_size", len(batch))
			continue
		}

		accepted, broken := splitByValidity(records, byID)
		if len(broken) > 0 {
			logger.Warn("Fragments failed validation, attempting repair", "count", len(broken))
			repairRecords, err := s.completeBatch(ctx, prompt+repairInstructions(broken))
			if err != nil {
				logger.Error("Fragment repair call failed", err, "batch_start", start)
			} else {
				repaired, stillBroken := splitByValidity(repairRecords, byID)
				seen := make(map[string]bool, len(accepted))
				for _, f := range accepted {
					seen[f.ItemID] = true
				}
				for _, f := range repaired {
					if !seen[f.ItemID] {
						accepted = append(accepted, f)
						seen[f.ItemID] = true
					}
				}
				for _, b := range stillBroken {
					logger.Warn("Dropping fragment after failed repair", "item_id", b.fragment.ItemID)
				}
			}
		}
		fragments = append(fragments, accepted...)

		if end < len(body) && s.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return fragments, ctx.Err()
			case <-time.After(s.cfg.Pause):
			}
		}
	}
	return fragments, nil
}

type brokenFragment struct {
	fragment Fragment
	errs     []string
}

// splitByValidity keeps fragments that reference a known item and pass the
// structural checks, and collects the rest with their violations.
func splitByValidity(records []Fragment, byID map[string]*core.NewsItem) ([]Fragment, []brokenFragment) {
	var accepted []Fragment
	var broken []brokenFragment
	for _, rec := range records {
		if _, ok := byID[rec.ItemID]; !ok {
			logger.Warn("Fragment references unknown item, dropping", "item_id", rec.ItemID)
			continue
		}
		rec.Category = normalizeCategory(rec.Category)
		if errs := ValidateFragment(rec.Markdown); len(errs) > 0 {
			broken = append(broken, brokenFragment{fragment: rec, errs: errs})
			continue
		}
		accepted = append(accepted, rec)
	}
	return accepted, broken
}

func normalizeCategory(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "infrastructure", "infra":
		return CategoryInfrastructure
	case "application", "applications", "agent", "agents":
		return CategoryApplication
	case "model", "models", "technique", "techniques":
		return CategoryModel
	default:
		return CategoryModel
	}
}

func repairInstructions(broken []brokenFragment) string {
	var b strings.Builder
	b.WriteString("\n\nYour previous answer had formatting problems. Regenerate the full JSON array and fix these issues:\n")
	for _, bf := range broken {
		fmt.Fprintf(&b, "- item %s: %s\n", bf.fragment.ItemID, strings.Join(bf.errs, "; "))
	}
	b.WriteString("Follow the markdown template exactly.")
	return b.String()
}

// completeBatch calls the oracle with retries and decodes the JSON array of
// fragment records.
func (s *Synthesizer) completeBatch(ctx context.Context, prompt string) ([]Fragment, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		text, err := s.oracle.Complete(ctx, prompt, s.cfg.Temperature)
		if err != nil {
			lastErr = err
			logger.Warn("Fragment generation attempt failed", "attempt", attempt, "error", err)
		} else {
			var records []Fragment
			if err := llm.DecodeRecords(text, &records); err != nil {
				lastErr = err
				logger.Warn("Fragment response decode failed", "attempt", attempt, "error", err)
			} else {
				return records, nil
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < s.cfg.MaxRetries && s.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.Pause):
			}
		}
	}
	return nil, fmt.Errorf("fragment generation exhausted %d attempts: %w", s.cfg.MaxRetries, lastErr)
}

// completeText calls the oracle with the same retry schedule as the fragment
// batches but keeps the raw response text.
func (s *Synthesizer) completeText(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		text, err := s.oracle.Complete(ctx, prompt, s.cfg.Temperature)
		if err == nil {
			return text, nil
		}
		lastErr = err
		logger.Warn("Highlights generation attempt failed", "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < s.cfg.MaxRetries && s.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.cfg.Pause):
			}
		}
	}
	return "", fmt.Errorf("highlights generation exhausted %d attempts: %w", s.cfg.MaxRetries, lastErr)
}

// generateHighlights asks the oracle for the top-of-report highlights list
// and retries once when the tagged-entry format is missing. An exhausted
// oracle never fails the report: the section is simply omitted.
func (s *Synthesizer) generateHighlights(ctx context.Context, items []*core.NewsItem) string {
	if len(items) == 0 {
		return ""
	}
	prompt := highlightsPrompt(items)
	content, err := s.completeText(ctx, prompt)
	if err != nil {
		logger.Error("Highlights generation failed, omitting section", err)
		return ""
	}
	if ValidHighlights(content) {
		return strings.TrimSpace(content)
	}

	logger.Warn("Highlights missing tagged entries, retrying once")
	repair := prompt + "\n\nYour previous answer did not follow the required format. Every line must start with: * **[[Tag]]** [**Title**]:"
	retry, err := s.oracle.Complete(ctx, repair, s.cfg.Temperature)
	if err != nil {
		return strings.TrimSpace(content)
	}
	if ValidHighlights(retry) {
		return strings.TrimSpace(retry)
	}
	return strings.TrimSpace(content)
}

// HighlightTags parses the tag and title out of each highlights entry so the
// reference list can reuse the same grouping.
func HighlightTags(highlights string) []references.TitleTag {
	var tags []references.TitleTag
	for _, m := range highlightLine.FindAllStringSubmatch(highlights, -1) {
		tags = append(tags, references.TitleTag{Title: m[2], Tag: m[1]})
	}
	return tags
}
