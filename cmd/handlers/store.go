package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/config"
	"curator/internal/logger"
	"curator/internal/store"
)

// NewStoreCmd creates the article store management command
func NewStoreCmd() *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Inspect and maintain the article store",
		Long:  `Show per-table statistics and prune articles older than the retention window.`,
	}

	storeCmd.AddCommand(newStoreStatsCmd())
	storeCmd.AddCommand(newStoreCleanupCmd())

	return storeCmd
}

func newStoreStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show article counts and date ranges per source table",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runStoreStats(cmd.Context()); err != nil {
				logger.Error("Failed to get store stats", err)
				os.Exit(1)
			}
		},
	}
}

func newStoreCleanupCmd() *cobra.Command {
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete articles older than the retention window",
		Run: func(cmd *cobra.Command, args []string) {
			days, _ := cmd.Flags().GetInt("days")
			if err := runStoreCleanup(cmd.Context(), days); err != nil {
				logger.Error("Failed to clean up store", err)
				os.Exit(1)
			}
		},
	}

	cleanupCmd.Flags().Int("days", 30, "Delete articles older than this many days")
	return cleanupCmd
}

func withStore(fn func(*store.Store) error) error {
	cfg := config.Get()
	st, err := store.NewStore(cfg.Store.Directory, cfg.Store.SourceTables)
	if err != nil {
		return fmt.Errorf("failed to open article store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close article store", err)
		}
	}()
	return fn(st)
}

func runStoreStats(ctx context.Context) error {
	return withStore(func(st *store.Store) error {
		stats, err := st.Stats(ctx)
		if err != nil {
			return fmt.Errorf("failed to get store statistics: %w", err)
		}

		fmt.Println("📊 Article Store")
		fmt.Println("================")
		total := 0
		for _, s := range stats {
			fmt.Printf("%-20s %6d articles", s.Table, s.Count)
			if s.Count > 0 {
				fmt.Printf("  (%s to %s)",
					time.Unix(s.Oldest, 0).UTC().Format("2006-01-02"),
					time.Unix(s.Newest, 0).UTC().Format("2006-01-02"))
			}
			fmt.Println()
			total += s.Count
		}
		fmt.Printf("%-20s %6d articles\n", "total", total)
		return nil
	})
}

func runStoreCleanup(ctx context.Context, days int) error {
	return withStore(func(st *store.Store) error {
		cutoff := time.Now().AddDate(0, 0, -days)
		deleted, err := st.Cleanup(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("🧹 Deleted %d articles older than %s\n", deleted, cutoff.UTC().Format("2006-01-02"))
		return nil
	})
}
