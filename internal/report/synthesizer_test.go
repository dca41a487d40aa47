package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"curator/internal/core"
	"curator/internal/llm"
)

func rankedItem(id string, tier core.Tier, score float64) *core.NewsItem {
	return &core.NewsItem{
		ItemID:         id,
		Title:          "Title " + id,
		Body:           "Body " + id,
		URL:            "https://example.com/" + id,
		SourceName:     "Test Source",
		PublishTime:    1756300000,
		Tier:           tier,
		CompositeScore: score,
	}
}

func fragmentFor(id, category string) Fragment {
	markdown := fmt.Sprintf("### **Entry %s**\n\n[Read source](https://example.com/%s)  `2026-08-01 09:00`\n\n> **Summary**: Something happened.\n\n**Details**\n\n- **Point**: detail.\n", id, id)
	return Fragment{ItemID: id, Category: category, Markdown: markdown}
}

func fragmentResponse(fragments ...Fragment) string {
	b, _ := json.Marshal(fragments)
	return string(b)
}

const goodHighlights = "* **[[Compute]]** [**Title a**]: the hook.\n"

func TestPromptTruncationKeepsRunesIntact(t *testing.T) {
	item := rankedItem("a", core.TierS, 4.5)
	item.Summary = strings.Repeat("模型", 150)
	item.Body = strings.Repeat("基础设施", 600)

	if got := snippet(item.Summary, 401); got != strings.Repeat("模型", 66)+"模" {
		t.Errorf("snippet cut mid rune: got %d bytes ending %q", len(got), got[len(got)-3:])
	}
	for _, prompt := range []string{
		highlightsPrompt([]*core.NewsItem{item}),
		fragmentPrompt([]*core.NewsItem{item}, nil),
	} {
		if strings.Contains(prompt, "�") {
			t.Error("truncated prompt text contains a replacement character")
		}
	}
}

func TestSelectBodyItemsBackfillsFromC(t *testing.T) {
	items := []*core.NewsItem{
		rankedItem("s1", core.TierS, 4.5),
		rankedItem("a1", core.TierA, 3.8),
		rankedItem("c1", core.TierC, 2.5),
		rankedItem("c2", core.TierC, 2.2),
		rankedItem("c3", core.TierC, 1.9),
		rankedItem("c4", core.TierC, 1.5),
	}
	body := selectBodyItems(items)
	if len(body) != 5 {
		t.Fatalf("expected 5 body items, got %d", len(body))
	}
	// Two top tier plus the three best C items, in score order.
	want := []string{"s1", "a1", "c1", "c2", "c3"}
	for i, id := range want {
		if body[i].ItemID != id {
			t.Errorf("body[%d] = %s, want %s", i, body[i].ItemID, id)
		}
	}
}

func TestSelectBodyItemsNoBackfillWhenEnough(t *testing.T) {
	var items []*core.NewsItem
	for i := 0; i < 6; i++ {
		items = append(items, rankedItem(fmt.Sprintf("b%d", i), core.TierB, 3.0))
	}
	items = append(items, rankedItem("c1", core.TierC, 2.0))

	body := selectBodyItems(items)
	if len(body) != 6 {
		t.Fatalf("expected 6 body items, got %d", len(body))
	}
	for _, item := range body {
		if item.Tier == core.TierC {
			t.Error("C items must not appear when the body is already full")
		}
	}
}

func TestSynthesizeAssemblesDocument(t *testing.T) {
	items := []*core.NewsItem{
		rankedItem("a", core.TierS, 4.5),
		rankedItem("b", core.TierA, 3.8),
	}
	oracle := llm.NewMockCompleter(
		fragmentResponse(fragmentFor("a", "Infrastructure"), fragmentFor("b", "Application")),
		goodHighlights,
	)
	cfg := DefaultConfig()
	cfg.Pause = 0
	s := New(oracle, cfg)

	doc, err := s.Synthesize(context.Background(), items, []core.Paper{
		{Title: "A Paper", URL: "https://arxiv.org/abs/2501.1", Source: "arXiv"},
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	for _, want := range []string{
		"# AI Frontier Briefing (2025-08-27 to 2025-08-27)",
		"## Highlights",
		"* **[[Compute]]** [**Title a**]",
		"## 1. Infrastructure",
		"### **Entry a**",
		"## 2. Model & Techniques",
		emptySection,
		"## 3. Applications & Agents",
		"### **Entry b**",
		"## Further Reading",
		"[A Paper](https://arxiv.org/abs/2501.1)",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}

	// The infrastructure section must hold entry a, not b.
	infra := doc[strings.Index(doc, "## 1."):strings.Index(doc, "## 2.")]
	if strings.Contains(infra, "Entry b") {
		t.Error("fragment placed in the wrong section")
	}
}

func TestSynthesizeUnknownCategoryFallsToModel(t *testing.T) {
	items := []*core.NewsItem{rankedItem("a", core.TierS, 4.5)}
	oracle := llm.NewMockCompleter(
		fragmentResponse(fragmentFor("a", "Something Else")),
		goodHighlights,
	)
	cfg := DefaultConfig()
	cfg.Pause = 0
	s := New(oracle, cfg)

	doc, err := s.Synthesize(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	model := doc[strings.Index(doc, "## 2."):strings.Index(doc, "## 3.")]
	if !strings.Contains(model, "Entry a") {
		t.Error("unknown category must land in the model section")
	}
}

func TestSynthesizeRepairsBrokenFragment(t *testing.T) {
	items := []*core.NewsItem{rankedItem("a", core.TierS, 4.5)}
	broken := Fragment{ItemID: "a", Category: "Model", Markdown: "just text"}

	calls := 0
	oracle := &llm.MockCompleter{Script: func(prompt string) (string, error) {
		calls++
		switch calls {
		case 1:
			return fragmentResponse(broken), nil
		case 2:
			if !strings.Contains(prompt, "formatting problems") {
				t.Error("repair prompt must name the violations")
			}
			return fragmentResponse(fragmentFor("a", "Model")), nil
		default:
			return goodHighlights, nil
		}
	}}
	cfg := DefaultConfig()
	cfg.Pause = 0
	s := New(oracle, cfg)

	doc, err := s.Synthesize(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if !strings.Contains(doc, "### **Entry a**") {
		t.Error("repaired fragment missing from the document")
	}
}

func TestSynthesizeDropsFragmentAfterFailedRepair(t *testing.T) {
	items := []*core.NewsItem{
		rankedItem("a", core.TierS, 4.5),
		rankedItem("b", core.TierA, 3.8),
	}
	broken := Fragment{ItemID: "b", Category: "Model", Markdown: "still just text"}

	calls := 0
	oracle := &llm.MockCompleter{Script: func(prompt string) (string, error) {
		calls++
		switch calls {
		case 1:
			return fragmentResponse(fragmentFor("a", "Model"), broken), nil
		case 2:
			return fragmentResponse(broken), nil
		default:
			return goodHighlights, nil
		}
	}}
	cfg := DefaultConfig()
	cfg.Pause = 0
	s := New(oracle, cfg)

	doc, err := s.Synthesize(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if strings.Contains(doc, "still just text") {
		t.Error("a fragment that failed repair must not reach the document")
	}
	if !strings.Contains(doc, "### **Entry a**") {
		t.Error("the valid fragment must survive")
	}
}

func TestSynthesizeHighlightsRetryOnce(t *testing.T) {
	items := []*core.NewsItem{rankedItem("a", core.TierS, 4.5)}

	calls := 0
	oracle := &llm.MockCompleter{Script: func(prompt string) (string, error) {
		calls++
		switch calls {
		case 1:
			return fragmentResponse(fragmentFor("a", "Model")), nil
		case 2:
			return "* Title a: untagged hook.", nil
		default:
			return goodHighlights, nil
		}
	}}
	cfg := DefaultConfig()
	cfg.Pause = 0
	s := New(oracle, cfg)

	doc, err := s.Synthesize(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected one highlights retry, got %d total calls", calls)
	}
	if !strings.Contains(doc, "**[[Compute]]**") {
		t.Error("retried highlights missing from the document")
	}
}

func TestSynthesizeOmitsHighlightsWhenOracleFails(t *testing.T) {
	items := []*core.NewsItem{rankedItem("a", core.TierS, 4.5)}

	highlightCalls := 0
	oracle := &llm.MockCompleter{Script: func(prompt string) (string, error) {
		if strings.Contains(prompt, "highlights list") {
			highlightCalls++
			return "", fmt.Errorf("oracle unavailable")
		}
		return fragmentResponse(fragmentFor("a", "Model")), nil
	}}
	cfg := DefaultConfig()
	cfg.Pause = 0
	cfg.MaxRetries = 2
	s := New(oracle, cfg)

	doc, err := s.Synthesize(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("Synthesize must not fail when only highlights are lost: %v", err)
	}
	if highlightCalls != 2 {
		t.Errorf("expected %d highlights attempts, got %d", 2, highlightCalls)
	}
	if strings.Contains(doc, "## Highlights") {
		t.Error("failed highlights must omit the section, not emit it empty")
	}
	if !strings.Contains(doc, "### **Entry a**") {
		t.Error("body entries must survive a highlights failure")
	}
}

func TestSynthesizePlaceholderReportWhenOracleDown(t *testing.T) {
	items := []*core.NewsItem{
		rankedItem("a", core.TierS, 4.5),
		rankedItem("b", core.TierA, 3.8),
	}
	oracle := &llm.MockCompleter{Script: func(string) (string, error) {
		return "", fmt.Errorf("oracle unavailable")
	}}
	cfg := DefaultConfig()
	cfg.Pause = 0
	cfg.MaxRetries = 1
	s := New(oracle, cfg)

	doc, err := s.Synthesize(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("Synthesize must degrade, not fail: %v", err)
	}
	if got := strings.Count(doc, emptySection); got != 3 {
		t.Errorf("expected placeholder in all 3 sections, got %d", got)
	}
	if !strings.Contains(doc, "# AI Frontier Briefing") {
		t.Error("placeholder report must keep the title")
	}
	if strings.Contains(doc, "## Highlights") {
		t.Error("placeholder report must not carry a highlights section")
	}
}

func TestSynthesizeUsedURLsExcludedFromReferences(t *testing.T) {
	items := []*core.NewsItem{rankedItem("a", core.TierS, 4.5)}
	// The fragment cites the paper inline; Further Reading must skip it.
	frag := fragmentFor("a", "Model")
	frag.Markdown += "[Related paper](https://arxiv.org/abs/2501.9)\n"

	oracle := llm.NewMockCompleter(fragmentResponse(frag), goodHighlights)
	cfg := DefaultConfig()
	cfg.Pause = 0
	s := New(oracle, cfg)

	doc, err := s.Synthesize(context.Background(), items, []core.Paper{
		{Title: "Cited Paper", URL: "https://arxiv.org/abs/2501.9", Source: "arXiv"},
		{Title: "Fresh Paper", URL: "https://arxiv.org/abs/2501.10", Source: "arXiv"},
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	further := doc[strings.Index(doc, "## Further Reading"):]
	if strings.Contains(further, "Cited Paper") {
		t.Error("a paper cited in the body leaked into Further Reading")
	}
	if !strings.Contains(further, "Fresh Paper") {
		t.Error("the uncited paper must appear in Further Reading")
	}
}
