package catalog

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// BatchRecord is one finished batch run in the history catalog.
type BatchRecord struct {
	ID         string
	Mode       string
	State      string
	Lines      int
	Items      int
	Failures   int
	TotalBytes int64
	CreatedAt  time.Time
}

// ItemRecord is one delivered artifact belonging to a batch.
type ItemRecord struct {
	BatchID        string
	Name           string
	SourceURL      string
	Kind           string
	MediaPath      string
	TranscriptPath string
	SizeBytes      int64
}

// FailureRecord is one failed input line belonging to a batch.
type FailureRecord struct {
	BatchID   string
	SourceURL string
	Message   string
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS batches (
    id          TEXT PRIMARY KEY,
    mode        TEXT NOT NULL DEFAULT 'both',
    state       TEXT NOT NULL DEFAULT 'completed',
    lines       INTEGER NOT NULL DEFAULT 0,
    items       INTEGER NOT NULL DEFAULT 0,
    failures    INTEGER NOT NULL DEFAULT 0,
    total_bytes INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS items (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id        TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
    name            TEXT NOT NULL DEFAULT '',
    source_url      TEXT NOT NULL DEFAULT '',
    kind            TEXT NOT NULL DEFAULT 'other',
    media_path      TEXT NOT NULL DEFAULT '',
    transcript_path TEXT NOT NULL DEFAULT '',
    size_bytes      INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS failures (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id   TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
    source_url TEXT NOT NULL DEFAULT '',
    message    TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at);
CREATE INDEX IF NOT EXISTS idx_items_batch_id ON items(batch_id);
CREATE INDEX IF NOT EXISTS idx_failures_batch_id ON failures(batch_id);
`

// Catalog wraps an SQLite connection for the batch history.
type Catalog struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Catalog, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	// SQLite pragmas for performance and reliability
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if _, err := sqlDB.Exec(createTableSQL); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Catalog{db: sqlDB}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RecordBatch persists a finished batch with its items and failures in a
// single transaction.
func (c *Catalog) RecordBatch(batch BatchRecord, items []ItemRecord, failures []FailureRecord) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("catalog not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO batches (id, mode, state, lines, items, failures, total_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, batch.ID, batch.Mode, batch.State, batch.Lines, batch.Items, batch.Failures, batch.TotalBytes)
	if err != nil {
		return fmt.Errorf("inserting batch record: %w", err)
	}

	for _, item := range items {
		_, err = tx.Exec(`
			INSERT INTO items (batch_id, name, source_url, kind, media_path, transcript_path, size_bytes)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, batch.ID, item.Name, item.SourceURL, item.Kind, item.MediaPath, item.TranscriptPath, item.SizeBytes)
		if err != nil {
			return fmt.Errorf("inserting item record: %w", err)
		}
	}

	for _, failure := range failures {
		_, err = tx.Exec(`
			INSERT INTO failures (batch_id, source_url, message)
			VALUES (?, ?, ?)
		`, batch.ID, failure.SourceURL, failure.Message)
		if err != nil {
			return fmt.Errorf("inserting failure record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch record: %w", err)
	}
	return nil
}

// RecentBatches returns batch records ordered by created_at descending.
func (c *Catalog) RecentBatches(limit int) ([]BatchRecord, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("catalog not initialized")
	}

	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.Query(`
		SELECT id, mode, state, lines, items, failures, total_bytes, created_at
		FROM batches
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var records []BatchRecord
	for rows.Next() {
		var r BatchRecord
		if err := rows.Scan(
			&r.ID, &r.Mode, &r.State, &r.Lines, &r.Items, &r.Failures, &r.TotalBytes, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning batch row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// BatchFailures returns the failure records of one batch in insert order.
func (c *Catalog) BatchFailures(batchID string) ([]FailureRecord, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("catalog not initialized")
	}

	rows, err := c.db.Query(`
		SELECT batch_id, source_url, message
		FROM failures
		WHERE batch_id = ?
		ORDER BY id
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var records []FailureRecord
	for rows.Next() {
		var r FailureRecord
		if err := rows.Scan(&r.BatchID, &r.SourceURL, &r.Message); err != nil {
			return nil, fmt.Errorf("scanning failure row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the total number of recorded batches.
func (c *Catalog) Count() (int, error) {
	if c == nil || c.db == nil {
		return 0, fmt.Errorf("catalog not initialized")
	}

	var count int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM batches").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting batches: %w", err)
	}
	return count, nil
}
