package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"telcosync/internal/classifier"
	"telcosync/internal/contacts"
	"telcosync/internal/logging"
	"telcosync/internal/syncer"
)

// newRunCommand is the cron entry point. Each stage runs even when an earlier
// one failed so classification keeps up with whatever data did arrive.
func newRunCommand(ctx *commandContext) *cobra.Command {
	var initial bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Migrate, sync every configured provider, classify and aggregate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, true, func(runCtx context.Context, rt *runtime) error {
				if _, err := rt.store.Migrate(runCtx); err != nil {
					return err
				}

				var errs []error
				summary, err := runSync(runCtx, rt, syncer.Request{Initial: initial})
				if err != nil {
					logging.WarnWithContext(rt.logger, "sync stage did not run", "run_sync_skipped",
						logging.Error(err),
						logging.Impact("classification only covers previously synced calls"),
					)
					errs = append(errs, fmt.Errorf("sync: %w", err))
				} else {
					printSyncSummary(cmd, summary)
					if err := summary.Err(); err != nil {
						errs = append(errs, fmt.Errorf("sync: %w", err))
					}
				}
				if runCtx.Err() != nil {
					return errors.Join(append(errs, runCtx.Err())...)
				}

				classified, err := runClassify(runCtx, rt, classifier.Options{})
				printClassifyResult(cmd, classified)
				if err != nil {
					errs = append(errs, fmt.Errorf("classify: %w", err))
				}

				aggregated, err := contacts.New(rt.store, rt.logger).Aggregate(runCtx)
				if err != nil {
					errs = append(errs, fmt.Errorf("aggregate: %w", err))
				} else {
					printAggregateResult(cmd, aggregated)
				}
				return errors.Join(errs...)
			})
		},
	}

	cmd.Flags().BoolVar(&initial, "initial", false, "Run bounded initial syncs instead of incremental ones")
	return cmd
}
