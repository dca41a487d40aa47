package report

import (
	"testing"
)

const goodFragment = "### **Vendor ships new accelerator**\n\n" +
	"[Read source](https://example.com/story)  `2026-08-01 09:00`\n\n" +
	"> **Summary**: The vendor announced a new accelerator with double the memory bandwidth. Early benchmarks look strong.\n\n" +
	"**Details**\n\n" +
	"- **Bandwidth**: Twice the previous generation.\n" +
	"- **Availability**: Shipping next quarter.\n"

func TestValidateFragmentAccepts(t *testing.T) {
	if errs := ValidateFragment(goodFragment); len(errs) != 0 {
		t.Errorf("well-formed fragment rejected: %v", errs)
	}
}

func TestValidateFragmentReportsEveryViolation(t *testing.T) {
	errs := ValidateFragment("just a paragraph of text")
	if len(errs) != len(fragmentChecks) {
		t.Errorf("expected %d violations, got %d: %v", len(fragmentChecks), len(errs), errs)
	}
}

func TestValidateFragmentMissingSummary(t *testing.T) {
	fragment := "### **Title**\n[Read source](https://x.test/a)\n**Details**\n- **Point**: text\n"
	errs := ValidateFragment(fragment)
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 violation, got %v", errs)
	}
}

func TestValidHighlights(t *testing.T) {
	good := "* **[[Compute]]** [**New accelerator ships**]: double bandwidth at the same power.\n"
	if !ValidHighlights(good) {
		t.Error("well-formed highlights rejected")
	}
	if ValidHighlights("* New accelerator ships: double bandwidth.") {
		t.Error("untagged highlights accepted")
	}
}

func TestExtractLinks(t *testing.T) {
	urls := ExtractLinks(goodFragment + "[Related paper](https://arxiv.org/abs/2501.1)\n")
	if len(urls) != 2 {
		t.Fatalf("expected 2 links, got %v", urls)
	}
	if urls[0] != "https://example.com/story" || urls[1] != "https://arxiv.org/abs/2501.1" {
		t.Errorf("unexpected urls: %v", urls)
	}
}

func TestHighlightTags(t *testing.T) {
	highlights := "* **[[Compute]]** [**Accelerator ships**]: hook one.\n" +
		"* **[[Agents]]** [**Agent platform launches**]: hook two.\n"
	tags := HighlightTags(highlights)
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if tags[0].Tag != "Compute" || tags[0].Title != "Accelerator ships" {
		t.Errorf("unexpected first tag: %+v", tags[0])
	}
	if tags[1].Tag != "Agents" {
		t.Errorf("unexpected second tag: %+v", tags[1])
	}
}
