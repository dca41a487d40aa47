package curate

import (
	"context"
	"sort"

	"curator/internal/core"
	"curator/internal/logger"
	"curator/internal/stage"
)

type rankRecord struct {
	ItemID        string `json:"item_id"`
	TechImpact    int    `json:"tech_impact"`
	IndustryScope int    `json:"industry_scope"`
}

func (r rankRecord) Key() string { return r.ItemID }

// Default scores for items whose ranking batch exhausted retries: a low
// but nonzero composite (1.9) that lands in tier C instead of silently
// dropping the item.
const (
	defaultTechImpact    = 2
	defaultIndustryScope = 2
	defaultHypeScore     = 1
)

// Rank scores every item on the three axes and derives the composite score
// and tier. The oracle scores tech impact and industry scope; the hype
// score is a deterministic bucket of the event size computed in code. The
// returned set is sorted by composite score, highest first.
func (c *Curator) Rank(ctx context.Context, items []*core.NewsItem) ([]*core.NewsItem, error) {
	logger.Info("rank stage starting", "items", len(items))

	// Event sizes must reflect the working set as it stands now, after
	// dedup shrank the groups.
	backfillEventSizes(items)

	opts := stage.Options{
		BatchSize:   c.cfg.RankBatchSize,
		MaxRetries:  c.cfg.MaxRetries,
		Pause:       c.cfg.Pause,
		Temperature: c.cfg.Temperature,
		Fallback:    stage.FallbackDefaultValue,
	}

	stage.Run(ctx, c.oracle, opts, items,
		func(batch []*core.NewsItem) string { return rankPrompt(batch) },
		func(item *core.NewsItem, rec rankRecord) {
			item.TechImpact = clampScore(rec.TechImpact)
			item.IndustryScope = clampScore(rec.IndustryScope)
			item.HypeScore = core.HypeScoreFor(item.EventSize)
			finishScore(item)
		},
		func(item *core.NewsItem) {
			item.TechImpact = defaultTechImpact
			item.IndustryScope = defaultIndustryScope
			item.HypeScore = defaultHypeScore
			finishScore(item)
		},
	)

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CompositeScore > items[j].CompositeScore
	})

	counts := map[core.Tier]int{}
	for _, item := range items {
		counts[item.Tier]++
	}
	logger.Info("rank stage done",
		"s", counts[core.TierS], "a", counts[core.TierA], "b", counts[core.TierB], "c", counts[core.TierC])

	return items, nil
}

func finishScore(item *core.NewsItem) {
	item.CompositeScore = core.CompositeScore(item.TechImpact, item.IndustryScope, item.HypeScore)
	item.Tier = core.TierFor(item.CompositeScore)
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return score
}
