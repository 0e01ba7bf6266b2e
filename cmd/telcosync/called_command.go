package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"telcosync/internal/phone"
	"telcosync/internal/services"
)

type calledResult struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized,omitempty"`
	Valid      bool   `json:"valid"`
	Called     bool   `json:"called"`
}

func newCalledCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var uncalledOnly bool

	cmd := &cobra.Command{
		Use:   "called <file>",
		Short: "Report which numbers in a list have already been dialled",
		Long: `Read phone numbers from a file (one per line, or the first column of a CSV)
and report which have already been called. Matching uses the last nine
digits, so formatting differences do not matter. Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := readNumberList(cmd, args[0])
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd, true, func(runCtx context.Context, rt *runtime) error {
				tails, err := rt.store.CalledTails(runCtx)
				if err != nil {
					return err
				}
				results := checkCalled(numbers, tails)

				switch {
				case asJSON:
					return writeJSON(cmd, results)
				case uncalledOnly:
					out := cmd.OutOrStdout()
					for _, r := range results {
						if r.Valid && !r.Called {
							fmt.Fprintln(out, r.Input)
						}
					}
					return nil
				}

				rows := make([][]string, 0, len(results))
				called := 0
				for _, r := range results {
					state := yesNo(r.Called)
					if !r.Valid {
						state = "invalid"
					}
					if r.Called {
						called++
					}
					rows = append(rows, []string{r.Input, phone.Display(r.Normalized), state})
				}
				writeRows(cmd, newListing("Number", "Normalized", "Called"), rows)
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d numbers already called\n", called, len(results))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&uncalledOnly, "uncalled", false, "Print only valid numbers not yet called, one per line")
	return cmd
}

// checkCalled marks each number whose nine-digit tail appears in tails.
func checkCalled(numbers, tails []string) []calledResult {
	seen := make(map[string]struct{}, len(tails))
	for _, tail := range tails {
		seen[tail] = struct{}{}
	}
	results := make([]calledResult, 0, len(numbers))
	for _, raw := range numbers {
		r := calledResult{Input: raw}
		tail := phone.Tail9(raw)
		if len(tail) == 9 {
			r.Valid = true
			r.Normalized = phone.Canonical(raw)
			_, r.Called = seen[tail]
		}
		results = append(results, r)
	}
	return results
}

func readNumberList(cmd *cobra.Command, path string) ([]string, error) {
	var in io.Reader
	if path == "-" {
		in = cmd.InOrStdin()
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "cli", "called", "open number list", err)
		}
		defer file.Close()
		in = file
	}
	return parseNumberList(in)
}

// parseNumberList takes the first column of every record. A leading header
// row without digits is dropped, as are blank lines.
func parseNumberList(in io.Reader) ([]string, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var out []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrData, "cli", "called", "parse number list", err)
		}
		if len(record) == 0 {
			continue
		}
		value := strings.TrimSpace(record[0])
		if value == "" {
			continue
		}
		if len(out) == 0 && phone.Digits(value) == "" {
			continue
		}
		out = append(out, value)
	}
	return out, nil
}
