package apimonitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS page_snapshots (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT NOT NULL,
    url          TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    content      TEXT NOT NULL,
    fetched_at   TEXT NOT NULL,
    checked_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_page_snapshots_name ON page_snapshots (name, id DESC);
CREATE TABLE IF NOT EXISTS monitor_runs (
    run_id          TEXT PRIMARY KEY,
    started_at      TEXT NOT NULL,
    finished_at     TEXT NOT NULL,
    pages_checked   INTEGER NOT NULL,
    pages_changed   INTEGER NOT NULL,
    pages_failed    INTEGER NOT NULL,
    impact_level    TEXT,
    action_required INTEGER NOT NULL DEFAULT 0,
    issue_url       TEXT,
    summary         TEXT
);`

// timeLayout keeps fixed-width fractions so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Snapshot is the stored text of one documentation page.
type Snapshot struct {
	Name      string
	URL       string
	Hash      string
	Content   string
	FetchedAt time.Time
	CheckedAt time.Time
}

// RunRecord is the outcome of one monitor run.
type RunRecord struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	PagesChecked   int
	PagesChanged   int
	PagesFailed    int
	ImpactLevel    string
	ActionRequired bool
	IssueURL       string
	Summary        string
}

// SnapshotStore persists page snapshots in SQLite.
type SnapshotStore struct {
	db *sql.DB
}

// OpenSnapshots opens or creates the snapshot database at path.
func OpenSnapshots(path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Close closes the database.
func (s *SnapshotStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Latest returns the newest snapshot of a page.
func (s *SnapshotStore) Latest(ctx context.Context, name string) (Snapshot, bool, error) {
	var (
		snap             Snapshot
		fetched, checked string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT name, url, content_hash, content, fetched_at, checked_at
        FROM page_snapshots WHERE name = ? ORDER BY id DESC LIMIT 1`, name).
		Scan(&snap.Name, &snap.URL, &snap.Hash, &snap.Content, &fetched, &checked)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	snap.FetchedAt = parseTime(fetched)
	snap.CheckedAt = parseTime(checked)
	return snap, true, nil
}

// Save stores snap. A snapshot whose hash matches the newest stored one only
// refreshes its checked_at; a changed page adds a new row so history is kept.
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	checked := snap.CheckedAt.UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `
        UPDATE page_snapshots SET checked_at = ?
        WHERE id = (SELECT id FROM page_snapshots WHERE name = ? ORDER BY id DESC LIMIT 1)
          AND content_hash = ?`, checked, snap.Name, snap.Hash)
	if err != nil {
		return fmt.Errorf("touch snapshot %s: %w", snap.Name, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO page_snapshots (name, url, content_hash, content, fetched_at, checked_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Name, snap.URL, snap.Hash, snap.Content, snap.FetchedAt.UTC().Format(timeLayout), checked)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.Name, err)
	}
	return nil
}

// History returns up to limit snapshots of a page, newest first.
func (s *SnapshotStore) History(ctx context.Context, name string, limit int) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT name, url, content_hash, content, fetched_at, checked_at
        FROM page_snapshots WHERE name = ? ORDER BY id DESC LIMIT ?`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var (
			snap             Snapshot
			fetched, checked string
		)
		if err := rows.Scan(&snap.Name, &snap.URL, &snap.Hash, &snap.Content, &fetched, &checked); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.FetchedAt = parseTime(fetched)
		snap.CheckedAt = parseTime(checked)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// RecordRun appends a run to monitor_runs.
func (s *SnapshotStore) RecordRun(ctx context.Context, run RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO monitor_runs (run_id, started_at, finished_at, pages_checked, pages_changed, pages_failed,
                                  impact_level, action_required, issue_url, summary)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.PagesChecked,
		run.PagesChanged,
		run.PagesFailed,
		nullableString(run.ImpactLevel),
		run.ActionRequired,
		nullableString(run.IssueURL),
		nullableString(run.Summary),
	)
	if err != nil {
		return fmt.Errorf("record monitor run: %w", err)
	}
	return nil
}

// LastRun returns the newest recorded run.
func (s *SnapshotStore) LastRun(ctx context.Context) (RunRecord, bool, error) {
	var (
		run                    RunRecord
		started, finished      string
		impact, issue, summary sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT run_id, started_at, finished_at, pages_checked, pages_changed, pages_failed,
               impact_level, action_required, issue_url, summary
        FROM monitor_runs ORDER BY started_at DESC LIMIT 1`).
		Scan(&run.RunID, &started, &finished, &run.PagesChecked, &run.PagesChanged, &run.PagesFailed,
			&impact, &run.ActionRequired, &issue, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, false, nil
	}
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("load last monitor run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.ImpactLevel = impact.String
	run.IssueURL = issue.String
	run.Summary = summary.String
	return run, true, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
