package curate

import (
	"context"
	"strings"

	"curator/internal/core"
	"curator/internal/logger"
	"curator/internal/stage"
)

type filterRecord struct {
	ItemID   string `json:"item_id"`
	Decision string `json:"filter_decision"`
	Reason   string `json:"filter_reason"`
}

func (r filterRecord) Key() string { return r.ItemID }

// Filter removes off-topic noise. Items with too little body text are
// rejected by rule without an oracle call; the rest are classified by the
// oracle in batches. Every rejected item is deleted from the store before
// the stage returns. Batches that exhaust retries are skipped: their items
// drop out of the run unresolved and undeleted.
func (c *Curator) Filter(ctx context.Context, items []*core.NewsItem) ([]*core.NewsItem, error) {
	logger.Info("filter stage starting", "items", len(items))

	// Rule pre-filter: no oracle call for items with no usable content.
	var candidates, ruleRejected []*core.NewsItem
	for _, item := range items {
		if len(strings.TrimSpace(item.Body)) < c.cfg.MinBodyLength {
			item.FilterDecision = core.DecisionReject
			item.FilterReason = "body too short"
			ruleRejected = append(ruleRejected, item)
			continue
		}
		candidates = append(candidates, item)
	}
	if len(ruleRejected) > 0 {
		logger.Info("rule pre-filter rejected items", "count", len(ruleRejected))
	}

	opts := stage.Options{
		BatchSize:   c.cfg.FilterBatchSize,
		MaxRetries:  c.cfg.MaxRetries,
		Pause:       c.cfg.Pause,
		Temperature: c.cfg.Temperature,
		Fallback:    stage.FallbackSkip,
	}

	unresolved := stage.Run(ctx, c.oracle, opts, candidates,
		func(batch []*core.NewsItem) string { return filterPrompt(batch) },
		func(item *core.NewsItem, rec filterRecord) {
			if strings.EqualFold(rec.Decision, string(core.DecisionKeep)) {
				item.FilterDecision = core.DecisionKeep
			} else {
				item.FilterDecision = core.DecisionReject
			}
			item.FilterReason = rec.Reason
		},
		nil,
	)
	if len(unresolved) > 0 {
		// Known limitation: these items are neither kept nor deleted.
		logger.Warn("filter batches unresolved after retries, items dropped from run", "count", len(unresolved))
	}

	var kept, oracleRejected []*core.NewsItem
	for _, item := range candidates {
		switch item.FilterDecision {
		case core.DecisionKeep:
			kept = append(kept, item)
		case core.DecisionReject:
			oracleRejected = append(oracleRejected, item)
		}
	}

	// One batched deletion pass for both rule- and oracle-rejected items.
	c.deleteItems(ctx, append(ruleRejected, oracleRejected...))

	logger.Info("filter stage done", "kept", len(kept), "rejected", len(ruleRejected)+len(oracleRejected), "unresolved", len(unresolved))
	return kept, nil
}
