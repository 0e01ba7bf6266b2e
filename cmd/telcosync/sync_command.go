package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"telcosync/internal/providers"
	"telcosync/internal/services"
	"telcosync/internal/syncer"
)

type syncFlags struct {
	initial   bool
	backfill  bool
	providers []string
	resources []string
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull provider data into the warehouse",
		Long: `Pull calls, messages and account resources from Zadarma, Telnyx and Retell
into the telco schema. Without --initial each resource continues from its
last successful sync_log entry, minus the configured overlap.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd, true, func(runCtx context.Context, rt *runtime) error {
				if _, err := rt.store.Migrate(runCtx); err != nil {
					return err
				}
				summary, err := runSync(runCtx, rt, req)
				if err != nil {
					return err
				}
				printSyncSummary(cmd, summary)
				return summary.Err()
			})
		},
	}

	cmd.Flags().BoolVar(&flags.initial, "initial", false, "Ignore sync_log and run bounded initial syncs")
	cmd.Flags().BoolVar(&flags.backfill, "backfill", false, "Re-fetch Retell calls missing phone numbers")
	cmd.Flags().StringSliceVar(&flags.providers, "provider", nil, "Provider to sync (zadarma, telnyx, retell); repeatable")
	cmd.Flags().StringSliceVar(&flags.resources, "resource", nil, "Resource to sync (calls, numbers, ...); repeatable")
	return cmd
}

func (f syncFlags) request() (syncer.Request, error) {
	req := syncer.Request{Initial: f.initial, Backfill: f.backfill}
	for _, value := range f.providers {
		name, err := providers.ParseName(value)
		if err != nil {
			return req, services.Wrap(services.ErrConfiguration, "cli", "sync", "", err)
		}
		req.Providers = append(req.Providers, name)
	}
	for _, value := range f.resources {
		kind, err := providers.ParseKind(value)
		if err != nil {
			return req, services.Wrap(services.ErrConfiguration, "cli", "sync", "", err)
		}
		req.Resources = append(req.Resources, kind)
	}
	return req, nil
}

func runSync(ctx context.Context, rt *runtime, req syncer.Request) (syncer.Summary, error) {
	adapters, err := buildAdapters(ctx, rt, req.Providers)
	if err != nil {
		return syncer.Summary{}, err
	}
	engine := syncer.New(rt.store, adapters, rt.syncOptions(), rt.logger)
	return engine.Run(ctx, req)
}

func printSyncSummary(cmd *cobra.Command, summary syncer.Summary) {
	l := newListing("Provider", "Resource", "Mode", "Status", "Fetched", "Inserted", "Updated", "Unchanged", "Data errors").
		countColumns("Fetched", "Inserted", "Updated", "Unchanged", "Data errors").
		withTotals()
	writeRows(cmd, l, syncRows(summary))

	failed := len(summary.Failed())
	totals := summary.Totals()
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d units, %d failed, %d fetched, %d inserted, %d updated\n",
		summary.RunID, len(summary.Units), failed, totals.Fetched, totals.Inserted, totals.Updated)
}

func syncRows(summary syncer.Summary) [][]string {
	rows := make([][]string, 0, len(summary.Units))
	for _, u := range summary.Units {
		status := u.Status
		if u.Skipped {
			status = "skipped (locked)"
		}
		rows = append(rows, []string{
			u.Provider,
			string(u.Resource),
			u.Mode,
			status,
			strconv.Itoa(u.Counts.Fetched),
			strconv.Itoa(u.Counts.Inserted),
			strconv.Itoa(u.Counts.Updated),
			strconv.Itoa(u.Counts.Unchanged),
			strconv.Itoa(u.Counts.DataErrors),
		})
	}
	return rows
}
