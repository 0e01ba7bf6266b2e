package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"telcosync/internal/apimonitor"
	"telcosync/internal/config"
	"telcosync/internal/notifications"
	"telcosync/internal/providers"
	"telcosync/internal/services/github"
	"telcosync/internal/services/llm"
)

func newAPIMonitorCommand(ctx *commandContext) *cobra.Command {
	var testMode bool

	cmd := &cobra.Command{
		Use:   "api-monitor",
		Short: "Check provider API documentation for changes",
		Long: `Fetch the configured provider documentation pages, diff them against the
stored snapshots and have the LLM judge whether the warehouse sync needs to
change. Actionable changes open a GitHub issue and send the notification
webhook. With --test only the LLM and the webhook are exercised.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, false, func(runCtx context.Context, rt *runtime) error {
				deps := apimonitor.Dependencies{
					Completer: rt.llmClient(),
					Issues:    rt.githubClient(),
					Notifier:  notifications.NewService(rt.cfg),
				}
				out := cmd.OutOrStdout()

				if testMode {
					if err := apimonitor.New(rt.cfg, deps, rt.logger).Test(runCtx); err != nil {
						return err
					}
					fmt.Fprintln(out, "LLM reachable; test notification sent")
					return nil
				}

				snapshots, err := apimonitor.OpenSnapshots(rt.cfg.SnapshotDBPath())
				if err != nil {
					return err
				}
				defer snapshots.Close()
				deps.Snapshots = snapshots

				report, err := apimonitor.New(rt.cfg, deps, rt.logger).Run(runCtx)
				printMonitorReport(cmd, report)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&testMode, "test", false, "Check LLM access and send a test notification without touching snapshots")
	return cmd
}

func (rt *runtime) llmClient() *llm.Client {
	key := rt.cfg.LLM.APIKey
	if key == "" {
		key = rt.creds.Get(config.KeyAnthropicAPIKey)
	}
	return llm.NewClient(llm.Config{
		APIKey:         key,
		BaseURL:        rt.cfg.LLM.BaseURL,
		Model:          rt.cfg.LLM.Model,
		MaxTokens:      rt.cfg.LLM.MaxTokens,
		TimeoutSeconds: rt.cfg.LLM.TimeoutSeconds,
	})
}

func (rt *runtime) githubClient() *github.Client {
	return github.NewClient(rt.cfg.Monitor.GitHubAPIURL, rt.cfg.Monitor.GitHubRepo,
		rt.creds.Get(config.KeyGitHubToken),
		providers.WithLogger(rt.logger),
	)
}

func printMonitorReport(cmd *cobra.Command, report apimonitor.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "checked %d pages: %d new baselines, %d changed, %d failed\n",
		report.Checked, report.Baseline, len(report.Changes), report.Failed)
	for _, change := range report.Changes {
		fmt.Fprintf(out, "  %s: +%d -%d lines\n", change.Name, change.Added, change.Removed)
	}
	if report.Analysis != nil {
		fmt.Fprintf(out, "impact %s: %s\n", report.Analysis.ImpactLevel, strings.TrimSpace(report.Analysis.Summary))
	}
	if report.IssueURL != "" {
		fmt.Fprintf(out, "issue: %s\n", report.IssueURL)
	}
	if report.Notified {
		fmt.Fprintln(out, "notification sent")
	}
}
