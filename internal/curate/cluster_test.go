package curate

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"curator/internal/core"
	"curator/internal/llm"
)

func clusterResponse(assignments map[string]string) string {
	var records []map[string]string
	for id, event := range assignments {
		records = append(records, map[string]string{"item_id": id, "event_id": event})
	}
	b, _ := json.Marshal(records)
	return string(b)
}

func TestClusterAssignsSharedEventID(t *testing.T) {
	st := newMockStore()
	a := newTestItem("wire_articles", "1", "Vendor ships new accelerator")
	b := newTestItem("wire_articles", "2", "New accelerator benchmarked")
	c := newTestItem("wire_articles", "3", "Unrelated funding round")

	oracle := llm.NewMockCompleter(clusterResponse(map[string]string{
		a.ItemID: "accelerator_launch",
		b.ItemID: "accelerator_launch",
		c.ItemID: "funding_round",
	}))
	cur := New(oracle, st, testConfig())

	out, err := cur.Cluster(context.Background(), []*core.NewsItem{a, b, c})
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 items, got %d", len(out))
	}
	if a.EventID != b.EventID || a.EventID != "accelerator_launch" {
		t.Errorf("shared story must share an event id: %q vs %q", a.EventID, b.EventID)
	}
	if a.EventSize != 2 || c.EventSize != 1 {
		t.Errorf("event sizes wrong: %d and %d", a.EventSize, c.EventSize)
	}
}

func TestClusterKnownEventsCarryAcrossBatches(t *testing.T) {
	st := newMockStore()
	cfg := testConfig()
	cfg.ClusterBatchSize = 1

	a := newTestItem("wire_articles", "1", "Model launch day one")
	b := newTestItem("wire_articles", "2", "Model launch follow-up")

	oracle := &llm.MockCompleter{Script: func(prompt string) (string, error) {
		// The second batch's prompt must list the event from the first.
		if strings.Contains(prompt, b.ItemID) && !strings.Contains(prompt, "model_launch") {
			return clusterResponse(map[string]string{b.ItemID: "different_event"}), nil
		}
		if strings.Contains(prompt, a.ItemID) {
			return clusterResponse(map[string]string{a.ItemID: "model_launch"}), nil
		}
		return clusterResponse(map[string]string{b.ItemID: "model_launch"}), nil
	}}
	cur := New(oracle, st, cfg)

	out, err := cur.Cluster(context.Background(), []*core.NewsItem{a, b})
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(out) != 2 || a.EventID != "model_launch" || b.EventID != "model_launch" {
		t.Errorf("known event not reused across batches: %q vs %q", a.EventID, b.EventID)
	}
}

func TestClusterUnresolvedItemsDrop(t *testing.T) {
	st := newMockStore()
	a := newTestItem("wire_articles", "1", "Story")
	oracle := llm.NewMockCompleter("not json")
	cur := New(oracle, st, testConfig())

	out, err := cur.Cluster(context.Background(), []*core.NewsItem{a})
	if err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("items without an event id must drop, got %d", len(out))
	}
}

func TestNormalizeEventID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Model Launch", "model_launch"},
		{"  GPU-cluster/build  ", "gpu_cluster_build"},
		{"already_fine", "already_fine"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeEventID(tt.in); got != tt.want {
			t.Errorf("normalizeEventID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
