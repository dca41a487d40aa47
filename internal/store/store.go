package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"curator/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed article store. Scraping adapters write rows
// into per-source tables; the pipeline reads a lookback window and deletes
// records rejected by the filter and dedup stages.
type Store struct {
	db     *sql.DB
	path   string
	tables []string
}

// NewStore opens (or creates) the store under dataDir with one table per
// configured source.
func NewStore(dataDir string, tables []string) (*Store, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("at least one source table is required")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "curator.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:     db,
		path:   dbPath,
		tables: tables,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the source tables
func (s *Store) initialize() error {
	for _, table := range s.tables {
		stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			article_id TEXT PRIMARY KEY,
			source TEXT,
			title TEXT,
			description TEXT,
			content TEXT,
			article_url TEXT,
			publish_time INTEGER,
			reference_links TEXT
		);`, table)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Tables returns the configured source table names.
func (s *Store) Tables() []string {
	return s.tables
}

// knownTable guards against table names arriving from untrusted record
// fields; table names are interpolated into SQL.
func (s *Store) knownTable(table string) bool {
	for _, t := range s.tables {
		if t == table {
			return true
		}
	}
	return false
}

// FetchRecent returns all records across every source table published at or
// after cutoff, newest first within each table, capped per table.
func (s *Store) FetchRecent(ctx context.Context, cutoff time.Time, perSourceLimit int) ([]core.RawRecord, error) {
	var records []core.RawRecord

	for _, table := range s.tables {
		query := fmt.Sprintf(`
		SELECT article_id, source, title, description, content, article_url, publish_time, reference_links
		FROM %s
		WHERE publish_time >= ?
		ORDER BY publish_time DESC
		LIMIT ?`, table)

		rows, err := s.db.QueryContext(ctx, query, cutoff.Unix(), perSourceLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", table, err)
		}

		for rows.Next() {
			var rec core.RawRecord
			var source, title, description, content, url, refs sql.NullString
			if err := rows.Scan(&rec.OriginalID, &source, &title, &description, &content, &url, &rec.PublishTime, &refs); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan row from %s: %w", table, err)
			}
			rec.SourceTable = table
			rec.SourceName = source.String
			rec.Title = title.String
			rec.Summary = description.String
			rec.Body = content.String
			rec.URL = url.String
			rec.CitationLinks = refs.String
			records = append(records, rec)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
		}
		rows.Close()
	}

	return records, nil
}

// DeleteByIDs removes records from one source table. Already-deleted ids are
// harmless; the returned count reflects rows actually removed. The deletion
// runs in its own transaction.
func (s *Store) DeleteByIDs(ctx context.Context, table string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if !s.knownTable(table) {
		return 0, fmt.Errorf("unknown source table: %s", table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf("DELETE FROM %s WHERE article_id IN (%s)", table, placeholders)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit deletion: %w", err)
	}

	return deleted, nil
}

// InsertRecord writes a raw record into its source table. Used by seeding
// tooling and tests; the scraping adapters that normally populate the store
// are external collaborators.
func (s *Store) InsertRecord(ctx context.Context, rec core.RawRecord) error {
	if !s.knownTable(rec.SourceTable) {
		return fmt.Errorf("unknown source table: %s", rec.SourceTable)
	}

	query := fmt.Sprintf(`
	INSERT OR REPLACE INTO %s
	(article_id, source, title, description, content, article_url, publish_time, reference_links)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, rec.SourceTable)

	_, err := s.db.ExecContext(ctx, query,
		rec.OriginalID,
		rec.SourceName,
		rec.Title,
		rec.Summary,
		rec.Body,
		rec.URL,
		rec.PublishTime,
		rec.CitationLinks,
	)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", rec.SourceTable, err)
	}
	return nil
}

// TableStats holds per-table row counts and publish-time bounds.
type TableStats struct {
	Table  string
	Count  int
	Oldest int64 // Unix seconds, zero when the table is empty
	Newest int64
}

// Stats returns row counts and publish-time ranges for every source table.
func (s *Store) Stats(ctx context.Context) ([]TableStats, error) {
	stats := make([]TableStats, 0, len(s.tables))
	for _, table := range s.tables {
		var count int
		var oldest, newest sql.NullInt64
		query := fmt.Sprintf("SELECT COUNT(*), MIN(publish_time), MAX(publish_time) FROM %s", table)
		if err := s.db.QueryRowContext(ctx, query).Scan(&count, &oldest, &newest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats = append(stats, TableStats{Table: table, Count: count, Oldest: oldest.Int64, Newest: newest.Int64})
	}
	return stats, nil
}

// Cleanup removes records published before cutoff from every source table
// and returns the total number of rows removed.
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for _, table := range s.tables {
		query := fmt.Sprintf("DELETE FROM %s WHERE publish_time < ?", table)
		res, err := s.db.ExecContext(ctx, query, cutoff.Unix())
		if err != nil {
			return total, fmt.Errorf("failed to clean %s: %w", table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}
