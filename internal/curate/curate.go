// Package curate implements the editorial stages of the pipeline: filter,
// cluster, deduplicate, and rank. Each stage consumes and returns the
// working item set, annotating items through the retryable stage executor.
package curate

import (
	"context"
	"time"

	"curator/internal/core"
	"curator/internal/llm"
	"curator/internal/logger"
)

// Deleter is the slice of the store the stages need: batched, idempotent
// deletion of records rejected by filtering and deduplication.
type Deleter interface {
	DeleteByIDs(ctx context.Context, table string, ids []string) (int64, error)
}

// Config holds stage tuning knobs.
type Config struct {
	FilterBatchSize  int
	ClusterBatchSize int
	RankBatchSize    int
	MinBodyLength    int // Rule pre-filter threshold (bytes of body text)
	KeepPerEvent     int // K: canonical items surviving dedup per event
	MaxRetries       int
	Pause            time.Duration // Between oracle batches
	Temperature      float32
}

// DefaultConfig returns the tuning used by the production batch job.
func DefaultConfig() Config {
	return Config{
		FilterBatchSize:  20,
		ClusterBatchSize: 30,
		RankBatchSize:    20,
		MinBodyLength:    50,
		KeepPerEvent:     3,
		MaxRetries:       5,
		Pause:            time.Second,
		Temperature:      0.1,
	}
}

// Curator runs the editorial stages against one oracle and one store.
type Curator struct {
	oracle llm.Completer
	store  Deleter
	cfg    Config
}

// New creates a Curator.
func New(oracle llm.Completer, store Deleter, cfg Config) *Curator {
	if cfg.KeepPerEvent < 1 {
		cfg.KeepPerEvent = 3
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Curator{oracle: oracle, store: store, cfg: cfg}
}

// deleteItems issues one batched deletion per source table. A failing
// deletion is logged and isolated; it never aborts the run.
func (c *Curator) deleteItems(ctx context.Context, items []*core.NewsItem) {
	if len(items) == 0 {
		return
	}

	byTable := make(map[string][]string)
	var order []string
	for _, item := range items {
		if item.OriginalID == "" || item.SourceTable == "" {
			logger.Warn("cannot delete item without store back-reference", "item_id", item.ItemID)
			continue
		}
		if _, seen := byTable[item.SourceTable]; !seen {
			order = append(order, item.SourceTable)
		}
		byTable[item.SourceTable] = append(byTable[item.SourceTable], item.OriginalID)
	}

	for _, table := range order {
		ids := byTable[table]
		deleted, err := c.store.DeleteByIDs(ctx, table, ids)
		if err != nil {
			logger.Error("store deletion failed", err, "table", table, "ids", len(ids))
			continue
		}
		logger.Info("deleted records", "table", table, "count", deleted)
	}
}

// groupByEvent groups items by event id, preserving first-seen order of
// both groups and members.
func groupByEvent(items []*core.NewsItem) ([]string, map[string][]*core.NewsItem) {
	groups := make(map[string][]*core.NewsItem)
	var order []string
	for _, item := range items {
		if _, seen := groups[item.EventID]; !seen {
			order = append(order, item.EventID)
		}
		groups[item.EventID] = append(groups[item.EventID], item)
	}
	return order, groups
}

// backfillEventSizes recomputes EventSize from the current working set so
// the annotation always equals its group's cardinality.
func backfillEventSizes(items []*core.NewsItem) {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.EventID]++
	}
	for _, item := range items {
		item.EventSize = counts[item.EventID]
	}
}
