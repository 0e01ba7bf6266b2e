package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"telcosync/internal/services"
)

// Sync modes recorded in sync_log.mode.
const (
	ModeInitial     = "initial"
	ModeIncremental = "incremental"
	ModeSnapshot    = "snapshot"
)

// SyncLogEntry is one telco.sync_log row.
type SyncLogEntry struct {
	ID           int64
	RunID        string
	Provider     string
	Resource     string
	Mode         string
	WindowStart  *time.Time
	WindowEnd    *time.Time
	StartedAt    time.Time
	CompletedAt  *time.Time
	Status       string
	Fetched      int
	Inserted     int
	Updated      int
	Unchanged    int
	DataErrors   int
	Tombstoned   int
	ErrorMessage string
}

const syncLogColumns = `id, run_id, provider, resource, mode, window_start, window_end, started_at, completed_at, status,
    records_fetched, records_inserted, records_updated, records_unchanged, data_errors, tombstoned, COALESCE(error_message, '')`

func scanSyncLog(row pgx.Row) (SyncLogEntry, error) {
	var e SyncLogEntry
	err := row.Scan(&e.ID, &e.RunID, &e.Provider, &e.Resource, &e.Mode, &e.WindowStart, &e.WindowEnd, &e.StartedAt,
		&e.CompletedAt, &e.Status, &e.Fetched, &e.Inserted, &e.Updated, &e.Unchanged, &e.DataErrors, &e.Tombstoned,
		&e.ErrorMessage)
	return e, err
}

// LastSuccessfulSync returns the most recent successful run for a
// (provider, resource), or nil when there is none.
func (s *Store) LastSuccessfulSync(ctx context.Context, provider, resource string) (*SyncLogEntry, error) {
	row := s.db.QueryRow(ctx, `SELECT `+syncLogColumns+`
        FROM telco.sync_log
        WHERE provider = $1 AND resource = $2 AND status = $3 AND completed_at IS NOT NULL
        ORDER BY completed_at DESC
        LIMIT 1`, provider, resource, services.StatusSuccess)
	entry, err := scanSyncLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sync_log watermark: %w", err)
	}
	return &entry, nil
}

// RecordSync appends a sync_log row and returns its id.
func (s *Store) RecordSync(ctx context.Context, e SyncLogEntry) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
        INSERT INTO telco.sync_log (
            run_id, provider, resource, mode, window_start, window_end, started_at, completed_at, status,
            records_fetched, records_inserted, records_updated, records_unchanged, data_errors, tombstoned, error_message
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING id`,
		e.RunID, e.Provider, e.Resource, e.Mode,
		nullableTime(e.WindowStart), nullableTime(e.WindowEnd), e.StartedAt.UTC(), nullableTime(e.CompletedAt), e.Status,
		e.Fetched, e.Inserted, e.Updated, e.Unchanged, e.DataErrors, e.Tombstoned, nullableString(e.ErrorMessage),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert sync_log: %w", err)
	}
	return id, nil
}

// RecentSyncs returns the newest sync_log rows first.
func (s *Store) RecentSyncs(ctx context.Context, limit int) ([]SyncLogEntry, error) {
	rows, err := s.db.Query(ctx, `SELECT `+syncLogColumns+`
        FROM telco.sync_log
        ORDER BY started_at DESC, id DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync_log: %w", err)
	}
	defer rows.Close()

	var out []SyncLogEntry
	for rows.Next() {
		entry, err := scanSyncLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync_log: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
