package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"telcosync/internal/textutil"
	"telcosync/internal/warehouse"
)

type syncLogView struct {
	RunID       string     `json:"run_id"`
	Provider    string     `json:"provider"`
	Resource    string     `json:"resource"`
	Mode        string     `json:"mode"`
	Status      string     `json:"status"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Fetched     int        `json:"records_fetched"`
	Inserted    int        `json:"records_inserted"`
	Updated     int        `json:"records_updated"`
	Unchanged   int        `json:"records_unchanged"`
	DataErrors  int        `json:"data_errors"`
	Tombstoned  int        `json:"tombstoned"`
	Error       string     `json:"error,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent sync_log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return asConfigError("status", fmt.Errorf("--limit must be positive, got %d", limit))
			}
			return ctx.withRuntime(cmd, true, func(runCtx context.Context, rt *runtime) error {
				entries, err := rt.store.RecentSyncs(runCtx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					views := make([]syncLogView, 0, len(entries))
					for _, e := range entries {
						views = append(views, newSyncLogView(e))
					}
					return writeJSON(cmd, views)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sync runs recorded")
					return nil
				}
				l := newListing("Started", "Provider", "Resource", "Mode", "Status", "Fetched", "Inserted", "Updated", "Duration", "Error").
					countColumns("Fetched", "Inserted", "Updated")
				writeRows(cmd, l, statusRows(entries))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newSyncLogView(e warehouse.SyncLogEntry) syncLogView {
	return syncLogView{
		RunID:       e.RunID,
		Provider:    e.Provider,
		Resource:    e.Resource,
		Mode:        e.Mode,
		Status:      e.Status,
		WindowStart: e.WindowStart,
		WindowEnd:   e.WindowEnd,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
		Fetched:     e.Fetched,
		Inserted:    e.Inserted,
		Updated:     e.Updated,
		Unchanged:   e.Unchanged,
		DataErrors:  e.DataErrors,
		Tombstoned:  e.Tombstoned,
		Error:       e.ErrorMessage,
	}
}

func statusRows(entries []warehouse.SyncLogEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		duration := "-"
		if e.CompletedAt != nil {
			duration = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Provider,
			e.Resource,
			e.Mode,
			e.Status,
			strconv.Itoa(e.Fetched),
			strconv.Itoa(e.Inserted),
			strconv.Itoa(e.Updated),
			duration,
			textutil.Snippet(e.ErrorMessage, 60),
		})
	}
	return rows
}
