package curate

import (
	"context"
	"strings"

	"curator/internal/core"
	"curator/internal/logger"
	"curator/internal/stage"
)

type dedupRecord struct {
	ItemID   string `json:"item_id"`
	Decision string `json:"dedup_decision"`
	Reason   string `json:"dedup_reason"`
}

func (r dedupRecord) Key() string { return r.ItemID }

// Deduplicate keeps at most KeepPerEvent canonical items per event, chosen
// by the oracle against an authority rubric, and deletes the dropped ones
// from the store. Singleton events are kept without an oracle call. When a
// group's oracle calls exhaust retries, the first item is kept and the rest
// are left untouched rather than deleted.
func (c *Curator) Deduplicate(ctx context.Context, items []*core.NewsItem) ([]*core.NewsItem, error) {
	order, groups := groupByEvent(items)
	logger.Info("dedup stage starting", "items", len(items), "events", len(order))

	var kept, dropped []*core.NewsItem

	opts := stage.Options{
		BatchSize:   0, // One oracle call per event group
		MaxRetries:  c.cfg.MaxRetries,
		Pause:       c.cfg.Pause / 2,
		Temperature: c.cfg.Temperature,
		Fallback:    stage.FallbackKeepFirst,
	}

	for _, eventID := range order {
		group := groups[eventID]

		if len(group) == 1 {
			group[0].DedupDecision = core.DecisionKeep
			group[0].DedupReason = "unique source"
			kept = append(kept, group[0])
			continue
		}

		id := eventID
		unresolved := stage.Run(ctx, c.oracle, opts, group,
			func(batch []*core.NewsItem) string { return dedupPrompt(id, batch, c.cfg.KeepPerEvent) },
			func(item *core.NewsItem, rec dedupRecord) {
				if strings.EqualFold(rec.Decision, string(core.DecisionKeep)) {
					item.DedupDecision = core.DecisionKeep
				} else {
					item.DedupDecision = core.DecisionDrop
				}
				item.DedupReason = rec.Reason
			},
			func(item *core.NewsItem) {
				item.DedupDecision = core.DecisionKeep
				item.DedupReason = "dedup failed, default keep"
			},
		)
		if len(unresolved) > 0 {
			logger.Warn("dedup group partially unresolved", "event_id", eventID, "untouched", len(unresolved))
		}

		// Enforce the keep quota regardless of what the oracle answered.
		keeps := 0
		for _, item := range group {
			if item.DedupDecision != core.DecisionKeep {
				continue
			}
			keeps++
			if keeps > c.cfg.KeepPerEvent {
				item.DedupDecision = core.DecisionDrop
				item.DedupReason = "exceeds per-event keep quota"
			}
		}

		for _, item := range group {
			switch item.DedupDecision {
			case core.DecisionKeep:
				kept = append(kept, item)
			case core.DecisionDrop:
				dropped = append(dropped, item)
			}
		}

		// Per-group deletion keeps one failing store call from
		// affecting other events.
		var groupDrops []*core.NewsItem
		for _, item := range group {
			if item.DedupDecision == core.DecisionDrop {
				groupDrops = append(groupDrops, item)
			}
		}
		c.deleteItems(ctx, groupDrops)
	}

	logger.Info("dedup stage done", "kept", len(kept), "dropped", len(dropped))
	return kept, nil
}
