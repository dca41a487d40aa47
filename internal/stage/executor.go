// Package stage provides the generic batch-retry harness shared by every
// oracle-backed pipeline stage: build a prompt for a batch, call the oracle,
// decode the response, and map decoded records back onto items. Stages only
// differ in their prompts, their record shapes, and their fallback policy.
package stage

import (
	"context"
	"time"

	"curator/internal/core"
	"curator/internal/llm"
	"curator/internal/logger"
)

// FallbackPolicy decides what happens to items whose batch exhausted all
// retries, or that a successful response left unmatched.
type FallbackPolicy int

const (
	// FallbackSkip leaves the items unresolved; they fall out of
	// downstream stages. A known lossy path.
	FallbackSkip FallbackPolicy = iota
	// FallbackKeepFirst applies the stage default to the first item of
	// the batch and leaves the rest unresolved. Used by dedup to avoid
	// destructive action on ambiguous failure.
	FallbackKeepFirst
	// FallbackDefaultValue applies the stage default to every item.
	// Used by rank to hand out low neutral scores.
	FallbackDefaultValue
)

// Keyed is implemented by decoded oracle records so the executor can match
// them back to items by item id.
type Keyed interface {
	Key() string
}

// Options tunes a single executor run.
type Options struct {
	BatchSize   int           // Items per oracle call; <=0 means one batch
	MaxRetries  int           // Oracle attempts per batch before fallback
	Pause       time.Duration // Pause between batches (rate-limit backpressure)
	Temperature float32
	Fallback    FallbackPolicy
}

// Run processes items in batches. build renders the prompt for one batch,
// apply annotates one item from its matching record, and applyDefault
// annotates an item resolved by the fallback policy (nil is allowed for
// FallbackSkip). Run returns the items left unresolved; oracle and decode
// failures never escape as errors.
func Run[R Keyed](
	ctx context.Context,
	oracle llm.Completer,
	opts Options,
	items []*core.NewsItem,
	build func(batch []*core.NewsItem) string,
	apply func(item *core.NewsItem, rec R),
	applyDefault func(item *core.NewsItem),
) []*core.NewsItem {
	if len(items) == 0 {
		return nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = len(items)
	}

	var unresolved []*core.NewsItem

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		records, ok := completeBatch[R](ctx, oracle, opts, build(batch))
		if ok {
			byKey := make(map[string]R, len(records))
			for _, rec := range records {
				byKey[rec.Key()] = rec
			}

			var unmatched []*core.NewsItem
			for _, item := range batch {
				if rec, found := byKey[item.ItemID]; found {
					apply(item, rec)
				} else {
					unmatched = append(unmatched, item)
				}
			}
			// Items the oracle ignored get the same treatment as a
			// failed batch: they are fallback candidates.
			unresolved = append(unresolved, resolveFallback(opts.Fallback, unmatched, applyDefault)...)
		} else {
			logger.Warn("batch exhausted retries, applying fallback",
				"batch_start", start, "batch_size", len(batch), "policy", int(opts.Fallback))
			unresolved = append(unresolved, resolveFallback(opts.Fallback, batch, applyDefault)...)
		}

		if end < len(items) && opts.Pause > 0 {
			sleep(ctx, opts.Pause)
		}
	}

	return unresolved
}

// completeBatch runs the call→decode cycle up to MaxRetries times.
func completeBatch[R Keyed](ctx context.Context, oracle llm.Completer, opts Options, prompt string) ([]R, bool) {
	retries := opts.MaxRetries
	if retries < 1 {
		retries = 1
	}

	for attempt := 1; attempt <= retries; attempt++ {
		text, err := oracle.Complete(ctx, prompt, opts.Temperature)
		if err != nil {
			logger.Warn("oracle call failed", "attempt", attempt, "max_retries", retries, "error", err.Error())
			continue
		}

		var records []R
		if err := llm.DecodeRecords(text, &records); err != nil {
			// Malformed output consumes a retry just like a network failure.
			logger.Warn("oracle response undecodable", "attempt", attempt, "max_retries", retries, "error", err.Error())
			continue
		}
		return records, true
	}
	return nil, false
}

func resolveFallback(policy FallbackPolicy, batch []*core.NewsItem, applyDefault func(*core.NewsItem)) []*core.NewsItem {
	if len(batch) == 0 {
		return nil
	}
	switch policy {
	case FallbackKeepFirst:
		applyDefault(batch[0])
		return batch[1:]
	case FallbackDefaultValue:
		for _, item := range batch {
			applyDefault(item)
		}
		return nil
	default: // FallbackSkip
		return batch
	}
}

// sleep pauses between batches without outliving the context.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
