package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/llm"
	"curator/internal/logger"
	"curator/internal/pipeline"
	"curator/internal/search"
	"curator/internal/store"
)

// NewReportCmd creates the report generation command
func NewReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Run the full curation pipeline and write a markdown briefing",
		Long: `Load recent articles from the local store, run them through the
filter, cluster, dedup, and rank stages, then synthesize the report with
supporting paper references.`,
		Run: func(cmd *cobra.Command, args []string) {
			days, _ := cmd.Flags().GetInt("days")
			output, _ := cmd.Flags().GetString("output")
			snapshots, _ := cmd.Flags().GetBool("snapshots")
			if err := runReport(cmd.Context(), days, output, snapshots); err != nil {
				logger.Error("Report generation failed", err)
				os.Exit(1)
			}
		},
	}

	reportCmd.Flags().Int("days", 0, "Override the lookback window in days")
	reportCmd.Flags().StringP("output", "o", "", "Override the report output directory")
	reportCmd.Flags().Bool("snapshots", false, "Save the working set after each stage")
	return reportCmd
}

func runReport(ctx context.Context, days int, output string, snapshots bool) error {
	cfg := config.Get()
	if days > 0 {
		cfg.Store.LookbackDays = days
	}
	if output != "" {
		cfg.Report.OutputDirectory = output
	}
	if snapshots {
		cfg.Pipeline.SaveIntermediate = true
	}

	st, err := store.NewStore(cfg.Store.Directory, cfg.Store.SourceTables)
	if err != nil {
		return fmt.Errorf("failed to open article store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close article store", err)
		}
	}()

	oracle, err := llm.NewClient(cfg.Oracle.Model)
	if err != nil {
		return fmt.Errorf("failed to create oracle client: %w", err)
	}

	provider, err := search.NewProvider(
		search.ProviderType(cfg.Search.DefaultProvider),
		search.GoogleCredentials{APIKey: cfg.Search.GoogleAPIKey, SearchID: cfg.Search.GoogleSearchID},
	)
	if err != nil {
		return fmt.Errorf("failed to create search provider: %w", err)
	}

	result, err := pipeline.New(cfg, st, oracle, provider).Run(ctx)
	if errors.Is(err, pipeline.ErrNoData) {
		fmt.Println("No articles in the lookback window; nothing to report.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("📰 Report written to %s\n", result.ReportPath)
	fmt.Printf("   %d articles in, %d kept, %d paper candidates, took %s\n",
		result.Ingested, result.Kept, result.Papers, result.Duration.Round(time.Second))
	return nil
}
