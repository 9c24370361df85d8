package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"calibboard/internal"
)

// Run statuses recorded for each load attempt.
const (
	RunOK      = "ok"
	RunPartial = "partial"
	RunFailed  = "failed"
)

// DB keeps the ingestion audit trail. The working set itself is never stored.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL,
  sourcesJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_createdAt ON runs(createdAt);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertRun(run internal.RunRow) error {
	if run.TraceID == "" {
		return errors.New("run trace id is required")
	}
	sourcesJSON, err := json.Marshal(nonNilSources(run.Sources))
	if err != nil {
		return fmt.Errorf("encode sources: %w", err)
	}
	countsJSON, _ := json.Marshal(run.Counts)
	timingsJSON, _ := json.Marshal(run.Timings)

	_, err = d.conn.Exec(`
INSERT INTO runs (traceId, status, sourcesJson, countsJson, timingsJson, error)
VALUES (?, ?, ?, ?, ?, ?)
`, run.TraceID, run.Status, string(sourcesJSON), string(countsJSON), string(timingsJSON), run.Error)
	return err
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(`
SELECT id, traceId, status, sourcesJson, countsJson, timingsJson, error, createdAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var (
			run                                   internal.RunRow
			sourcesJSON, countsJSON, timingsJSON string
		)
		if err := rows.Scan(&run.ID, &run.TraceID, &run.Status, &sourcesJSON, &countsJSON, &timingsJSON, &run.Error, &run.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(sourcesJSON), &run.Sources)
		_ = json.Unmarshal([]byte(countsJSON), &run.Counts)
		_ = json.Unmarshal([]byte(timingsJSON), &run.Timings)
		out = append(out, run)
	}
	return out, rows.Err()
}

// GetRun returns nil when no run has the trace id.
func (d *DB) GetRun(traceID string) (*internal.RunRow, error) {
	var (
		run                                   internal.RunRow
		sourcesJSON, countsJSON, timingsJSON string
	)
	err := d.conn.QueryRow(`
SELECT id, traceId, status, sourcesJson, countsJson, timingsJson, error, createdAt
FROM runs WHERE traceId = ?
`, traceID).Scan(&run.ID, &run.TraceID, &run.Status, &sourcesJSON, &countsJSON, &timingsJSON, &run.Error, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(sourcesJSON), &run.Sources)
	_ = json.Unmarshal([]byte(countsJSON), &run.Counts)
	_ = json.Unmarshal([]byte(timingsJSON), &run.Timings)
	return &run, nil
}

func nonNilSources(in []internal.SourceReport) []internal.SourceReport {
	if in == nil {
		return []internal.SourceReport{}
	}
	return in
}
