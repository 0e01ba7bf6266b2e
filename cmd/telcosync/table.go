package main

import (
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// listing describes the columns of a command's tabular output. Count columns
// are right aligned on a terminal and, with totals, summed in the footer.
type listing struct {
	headers []string
	counts  []int
	totals  bool
}

func newListing(headers ...string) *listing {
	return &listing{headers: headers}
}

// countColumns marks the named columns as counts.
func (l *listing) countColumns(names ...string) *listing {
	for i, h := range l.headers {
		if slices.Contains(names, h) {
			l.counts = append(l.counts, i)
		}
	}
	return l
}

func (l *listing) withTotals() *listing {
	l.totals = true
	return l
}

func (l *listing) isCount(col int) bool {
	return slices.Contains(l.counts, col)
}

// render draws rows as a rounded table. Short rows are padded.
func (l *listing) render(rows [][]string) string {
	if len(l.headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(l.row(l.headers))
	for _, r := range rows {
		tw.AppendRow(l.row(r))
	}
	if l.totals && len(rows) > 1 && len(l.counts) > 0 {
		tw.AppendFooter(l.row(l.footer(rows)))
	}

	configs := make([]table.ColumnConfig, 0, len(l.headers))
	for i := range l.headers {
		align := text.AlignLeft
		if l.isCount(i) {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignFooter: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func (l *listing) row(cells []string) table.Row {
	out := make(table.Row, len(l.headers))
	for i := range out {
		out[i] = ""
		if i < len(cells) {
			out[i] = cells[i]
		}
	}
	return out
}

// footer sums the count columns. Cells that are not integers ("-", "skipped")
// do not contribute.
func (l *listing) footer(rows [][]string) []string {
	out := make([]string, len(l.headers))
	out[0] = "total"
	for _, col := range l.counts {
		sum := 0
		for _, r := range rows {
			if col < len(r) {
				if n, err := strconv.Atoi(r[col]); err == nil {
					sum += n
				}
			}
		}
		out[col] = strconv.Itoa(sum)
	}
	return out
}

// tsv is the non-terminal rendering: header line then one line per row.
func (l *listing) tsv(rows [][]string) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, strings.Join(l.headers, "\t"))
	for _, r := range rows {
		lines = append(lines, strings.Join(r, "\t"))
	}
	return strings.Join(lines, "\n")
}
