package main

import (
	"context"
	"fmt"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"telcosync/internal/contacts"
	"telcosync/internal/phone"
)

func newContactsCommand(ctx *commandContext) *cobra.Command {
	contactsCmd := &cobra.Command{
		Use:   "contacts",
		Short: "Contact administration",
	}
	contactsCmd.AddCommand(newClearDNCCommand(ctx))
	return contactsCmd
}

func newClearDNCCommand(ctx *commandContext) *cobra.Command {
	var reason string
	var actor string

	cmd := &cobra.Command{
		Use:   "clear-dnc <phone>",
		Short: "Lift the do-not-call flag on a contact",
		Long: `Lift the do-not-call flag on a contact. The DNC flag is otherwise sticky:
later calls never clear it. Calls made before the clear cannot re-flag the
contact; a later call classified as DNC will.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason = strings.TrimSpace(reason)
			if reason == "" {
				return asConfigError("clear-dnc", fmt.Errorf("--reason is required"))
			}
			if actor == "" {
				actor = currentUser()
			}
			return ctx.withRuntime(cmd, true, func(runCtx context.Context, rt *runtime) error {
				cleared, err := contacts.New(rt.store, rt.logger).ClearDNC(runCtx, args[0], reason, actor)
				if err != nil {
					return err
				}
				display := phone.Display(phone.Canonical(args[0]))
				if cleared {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared do-not-call for %s\n", display)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is not a do-not-call contact; nothing changed\n", display)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Why the flag is being lifted (recorded in contact_admin_log)")
	cmd.Flags().StringVar(&actor, "actor", "", "Who is clearing the flag (defaults to the current user)")
	return cmd
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "cli"
}
