package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the telco schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, true, func(runCtx context.Context, rt *runtime) error {
				report, err := rt.store.Migrate(runCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "applied %d statements\n", len(report.Applied))
				if len(report.Skipped) > 0 {
					fmt.Fprintf(out, "skipped for lack of privilege: %s\n", strings.Join(report.Skipped, ", "))
				}
				return nil
			})
		},
	}
}
