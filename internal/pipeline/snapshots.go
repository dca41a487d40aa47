package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"curator/internal/core"
	"curator/internal/logger"
)

// Snapshotter writes the working set to disk after each stage so a run can
// be inspected or replayed. A nil Snapshotter disables snapshots.
type Snapshotter struct {
	dir   string
	runID string
}

// NewSnapshotter prepares a per-run snapshot directory under dir.
func NewSnapshotter(dir, runID string) (*Snapshotter, error) {
	runDir := filepath.Join(dir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &Snapshotter{dir: runDir, runID: runID}, nil
}

type snapshot struct {
	RunID     string           `json:"run_id"`
	Stage     string           `json:"stage"`
	Timestamp string           `json:"timestamp"`
	Count     int              `json:"count"`
	Items     []*core.NewsItem `json:"items"`
}

// Save writes one stage snapshot as JSON. Failures are logged and swallowed;
// a broken snapshot never aborts the run.
func (s *Snapshotter) Save(stage string, items []*core.NewsItem) {
	if s == nil {
		return
	}
	snap := snapshot{
		RunID:     s.runID,
		Stage:     stage,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Count:     len(items),
		Items:     items,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		logger.Error("Failed to encode snapshot", err, "stage", stage)
		return
	}
	path := filepath.Join(s.dir, stage+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.Error("Failed to write snapshot", err, "path", path)
		return
	}
	logger.Debug("Saved stage snapshot", "stage", stage, "count", len(items), "path", path)
}
