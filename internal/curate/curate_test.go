package curate

import (
	"context"
	"strings"
	"testing"
	"time"

	"curator/internal/core"
)

// mockStore records deletions per table and can fail on demand.
type mockStore struct {
	deleted map[string][]string
	err     error
}

func newMockStore() *mockStore {
	return &mockStore{deleted: make(map[string][]string)}
}

func (m *mockStore) DeleteByIDs(ctx context.Context, table string, ids []string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.deleted[table] = append(m.deleted[table], ids...)
	return int64(len(ids)), nil
}

func (m *mockStore) deletedCount() int {
	n := 0
	for _, ids := range m.deleted {
		n += len(ids)
	}
	return n
}

func TestSnippetCutsOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{"short ascii untouched", "hello", 10, "hello"},
		{"ascii cut", "hello world", 5, "hello"},
		{"multibyte cut mid rune", "大模型发布", 7, "大模"},
		{"multibyte cut on boundary", "大模型发布", 6, "大模"},
		{"exact length untouched", "大模型", 9, "大模型"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snippet(tt.s, tt.n); got != tt.want {
				t.Errorf("snippet(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
			}
		})
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Pause = 0
	cfg.MaxRetries = 1
	return cfg
}

func newTestItem(table, id, title string) *core.NewsItem {
	return &core.NewsItem{
		ItemID:      table + "_" + id,
		OriginalID:  id,
		SourceTable: table,
		Title:       title,
		Body:        strings.Repeat(title+" ", 20),
		PublishTime: time.Now().Unix(),
	}
}

func TestGroupByEventPreservesOrder(t *testing.T) {
	items := []*core.NewsItem{
		{ItemID: "a", EventID: "ev_one"},
		{ItemID: "b", EventID: "ev_two"},
		{ItemID: "c", EventID: "ev_one"},
	}
	order, groups := groupByEvent(items)
	if len(order) != 2 || order[0] != "ev_one" || order[1] != "ev_two" {
		t.Errorf("unexpected event order: %v", order)
	}
	if len(groups["ev_one"]) != 2 || len(groups["ev_two"]) != 1 {
		t.Errorf("unexpected groups: %v", groups)
	}
}

func TestBackfillEventSizes(t *testing.T) {
	items := []*core.NewsItem{
		{ItemID: "a", EventID: "ev"},
		{ItemID: "b", EventID: "ev"},
		{ItemID: "c", EventID: "other"},
	}
	backfillEventSizes(items)
	if items[0].EventSize != 2 || items[1].EventSize != 2 {
		t.Errorf("shared event should have size 2, got %d and %d", items[0].EventSize, items[1].EventSize)
	}
	if items[2].EventSize != 1 {
		t.Errorf("singleton event should have size 1, got %d", items[2].EventSize)
	}
}
