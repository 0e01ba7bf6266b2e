package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"telcosync/internal/contacts"
)

func newAggregateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate",
		Short: "Rebuild telco.contacts and roll up call classifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, true, func(runCtx context.Context, rt *runtime) error {
				result, err := contacts.New(rt.store, rt.logger).Aggregate(runCtx)
				if err != nil {
					return err
				}
				printAggregateResult(cmd, result)
				return nil
			})
		},
	}
}

func printAggregateResult(cmd *cobra.Command, result contacts.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "contacts: %d inserted, %d updated; %d classified contacts rolled up (%d do-not-call) in %s\n",
		result.Inserted, result.Updated, result.Classified, result.DNC, result.Duration.Round(time.Millisecond))
}
