// Package pipeline orchestrates a full curation run: ingest the stored
// articles, narrow them through the curation stages, collect supporting
// papers, and synthesize the final markdown report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"curator/internal/config"
	"curator/internal/core"
	"curator/internal/curate"
	"curator/internal/ingest"
	"curator/internal/llm"
	"curator/internal/logger"
	"curator/internal/references"
	"curator/internal/report"
	"curator/internal/search"
	"curator/internal/store"
)

// ErrNoData is returned when the lookback window holds no articles at all.
var ErrNoData = errors.New("no articles found in the lookback window")

// Result summarizes a completed run.
type Result struct {
	RunID      string
	ReportPath string
	Ingested   int
	Kept       int
	Papers     int
	Duration   time.Duration
}

// Pipeline wires the store, the curation stages, the paper collector and
// the report synthesizer into one run loop.
type Pipeline struct {
	cfg         *config.Config
	store       *store.Store
	oracle      llm.Completer
	provider    search.Provider
	curator     *curate.Curator
	synthesizer *report.Synthesizer
}

// New assembles a pipeline from an already-loaded configuration and the
// injected oracle and search provider. Tests pass mocks for both.
func New(cfg *config.Config, st *store.Store, oracle llm.Completer, provider search.Provider) *Pipeline {
	pause := time.Duration(cfg.Oracle.PauseMillis) * time.Millisecond

	curateCfg := curate.DefaultConfig()
	curateCfg.FilterBatchSize = cfg.Pipeline.FilterBatchSize
	curateCfg.ClusterBatchSize = cfg.Pipeline.ClusterBatchSize
	curateCfg.RankBatchSize = cfg.Pipeline.RankBatchSize
	curateCfg.MinBodyLength = cfg.Pipeline.MinBodyLength
	curateCfg.KeepPerEvent = cfg.Pipeline.KeepPerEvent
	curateCfg.MaxRetries = cfg.Oracle.MaxRetries
	curateCfg.Pause = pause
	curateCfg.Temperature = cfg.Oracle.Temperature

	reportCfg := report.DefaultConfig()
	reportCfg.Title = cfg.Report.Title
	reportCfg.BatchSize = cfg.Pipeline.ReportBatchSize
	reportCfg.MaxRetries = cfg.Oracle.MaxRetries
	reportCfg.Pause = pause
	reportCfg.Quota = references.Quota{
		MaxTotal:  cfg.Report.MaxReferences,
		MaxPapers: cfg.Report.MaxPaperRefs,
	}

	return &Pipeline{
		cfg:         cfg,
		store:       st,
		oracle:      oracle,
		provider:    provider,
		curator:     curate.New(oracle, st, curateCfg),
		synthesizer: report.New(oracle, reportCfg),
	}
}

// Run executes the full pipeline and writes the report to the configured
// output directory.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	runID := uuid.New().String()
	logger.Info("Starting curation run", "run_id", runID, "lookback_days", p.cfg.Store.LookbackDays)

	var snapshots *Snapshotter
	if p.cfg.Pipeline.SaveIntermediate {
		var err error
		snapshots, err = NewSnapshotter(filepath.Join(p.cfg.App.DataDir, "snapshots"), runID)
		if err != nil {
			logger.Warn("Snapshots disabled", "error", err)
			snapshots = nil
		}
	}

	items, err := p.ingestItems(ctx)
	if err != nil {
		return nil, err
	}
	ingested := len(items)
	snapshots.Save("00_ingested", items)

	stages := []struct {
		name string
		run  func(context.Context, []*core.NewsItem) ([]*core.NewsItem, error)
	}{
		{"01_filtered", p.curator.Filter},
		{"02_clustered", p.curator.Cluster},
		{"03_deduplicated", p.curator.Deduplicate},
		{"04_ranked", p.curator.Rank},
	}
	for _, stage := range stages {
		items, err = stage.run(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.name, err)
		}
		snapshots.Save(stage.name, items)
		if len(items) == 0 {
			return nil, fmt.Errorf("stage %s left no items to report on: %w", stage.name, ErrNoData)
		}
	}

	collector := references.NewCollector(p.oracle, p.provider)
	papers := collector.CollectPapers(ctx, items)
	logger.Info("Collected paper candidates", "count", len(papers))

	document, err := p.synthesizer.Synthesize(ctx, items, papers)
	if err != nil {
		return nil, fmt.Errorf("report synthesis: %w", err)
	}

	path, err := p.writeReport(document)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:      runID,
		ReportPath: path,
		Ingested:   ingested,
		Kept:       len(items),
		Papers:     len(papers),
		Duration:   time.Since(started),
	}
	logger.Info("Curation run complete",
		"run_id", runID,
		"ingested", result.Ingested,
		"kept", result.Kept,
		"report", result.ReportPath,
		"duration", result.Duration.Round(time.Second).String())
	return result, nil
}

// ingestItems loads the lookback window from every source table and
// normalizes the records into the working set.
func (p *Pipeline) ingestItems(ctx context.Context) ([]*core.NewsItem, error) {
	cutoff := time.Now().AddDate(0, 0, -p.cfg.Store.LookbackDays)
	records, err := p.store.FetchRecent(ctx, cutoff, p.cfg.Store.PerSourceLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}
	items := ingest.Normalize(records)
	logger.Info("Ingested articles", "count", len(items), "tables", len(p.cfg.Store.SourceTables))
	return items, nil
}

// writeReport saves the document as AI_Report_<timestamp>.md in the output
// directory.
func (p *Pipeline) writeReport(document string) (string, error) {
	dir := p.cfg.Report.OutputDirectory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	name := fmt.Sprintf("AI_Report_%s.md", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(document), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
