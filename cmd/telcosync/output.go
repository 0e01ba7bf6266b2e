package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// writeJSON is the --json form of a listing.
func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	return err
}

// writeRows prints a rounded table when stdout is a terminal and
// tab-separated lines otherwise.
func writeRows(cmd *cobra.Command, l *listing, rows [][]string) {
	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		fmt.Fprintln(out, l.render(rows))
		return
	}
	fmt.Fprintln(out, l.tsv(rows))
}
