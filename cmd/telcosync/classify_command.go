package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"telcosync/internal/classifier"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var reanalyze bool

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify call transcripts with the regex taxonomy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return asConfigError("classify", fmt.Errorf("--limit must be zero or positive, got %d", limit))
			}
			return ctx.withRuntime(cmd, true, func(runCtx context.Context, rt *runtime) error {
				result, err := runClassify(runCtx, rt, classifier.Options{Limit: limit, Reanalyze: reanalyze})
				printClassifyResult(cmd, result)
				return err
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum calls to classify (0 = all pending)")
	cmd.Flags().BoolVar(&reanalyze, "reanalyze", false, "Re-classify calls that already have a verdict")
	return cmd
}

func runClassify(ctx context.Context, rt *runtime, opts classifier.Options) (classifier.Result, error) {
	opts.BatchSize = rt.cfg.Classifier.BatchSize
	return classifier.New(rt.store, rt.logger).Run(ctx, opts)
}

func printClassifyResult(cmd *cobra.Command, result classifier.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "classified %d of %d calls (%d do-not-call, %d failed)\n",
		result.Classified, result.Examined, result.DNC, result.Failed)
}
