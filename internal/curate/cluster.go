package curate

import (
	"context"
	"sort"
	"strings"

	"curator/internal/core"
	"curator/internal/logger"
	"curator/internal/stage"
)

type clusterRecord struct {
	ItemID  string `json:"item_id"`
	EventID string `json:"event_id"`
}

func (r clusterRecord) Key() string { return r.ItemID }

// Cluster assigns an event id to every item. Each batch's prompt carries a
// digest of the events already identified so the oracle can reuse ids for
// events spanning batches. That reuse is best-effort: an event appearing in
// non-adjacent batches can end up with two ids. Items whose batch exhausts
// retries fall out of the run.
func (c *Curator) Cluster(ctx context.Context, items []*core.NewsItem) ([]*core.NewsItem, error) {
	logger.Info("cluster stage starting", "items", len(items))

	var known []eventDigest
	seen := make(map[string]bool)

	opts := stage.Options{
		BatchSize:   c.cfg.ClusterBatchSize,
		MaxRetries:  c.cfg.MaxRetries,
		Pause:       c.cfg.Pause,
		Temperature: c.cfg.Temperature,
		Fallback:    stage.FallbackSkip,
	}

	unresolved := stage.Run(ctx, c.oracle, opts, items,
		func(batch []*core.NewsItem) string { return clusterPrompt(batch, known) },
		func(item *core.NewsItem, rec clusterRecord) {
			eventID := normalizeEventID(rec.EventID)
			if eventID == "" {
				return
			}
			// An assigned event id is final for the rest of the run.
			if item.EventID != "" {
				return
			}
			item.EventID = eventID
			if !seen[eventID] {
				seen[eventID] = true
				known = append(known, eventDigest{EventID: eventID, SampleTitle: item.Title})
			}
		},
		nil,
	)
	if len(unresolved) > 0 {
		logger.Warn("cluster batches unresolved after retries, items dropped from run", "count", len(unresolved))
	}

	var clustered []*core.NewsItem
	for _, item := range items {
		if item.EventID != "" {
			clustered = append(clustered, item)
		}
	}

	backfillEventSizes(clustered)

	logger.Info("cluster stage done", "items", len(clustered), "events", len(known))
	logTopEvents(clustered)
	return clustered, nil
}

// normalizeEventID lowercases an oracle-proposed slug and squeezes it into
// underscore form.
func normalizeEventID(id string) string {
	id = strings.TrimSpace(strings.ToLower(id))
	id = strings.Join(strings.FieldsFunc(id, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/'
	}), "_")
	return id
}

func logTopEvents(items []*core.NewsItem) {
	order, groups := groupByEvent(items)
	sort.SliceStable(order, func(i, j int) bool {
		return len(groups[order[i]]) > len(groups[order[j]])
	})
	if len(order) > 10 {
		order = order[:10]
	}
	for _, eventID := range order {
		logger.Debug("event cluster", "event_id", eventID, "items", len(groups[eventID]))
	}
}
