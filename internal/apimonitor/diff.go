package apimonitor

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"telcosync/internal/textutil"
)

// PageChange is one documentation page whose content changed.
type PageChange struct {
	Name       string
	URL        string
	Diff       string
	Added      int
	Removed    int
	Similarity float64
	Truncated  bool
}

// Diff renders a unified diff of a page's previous and current text, cut to
// maxLines lines.
func Diff(name, url, previous, current string, maxLines int) (PageChange, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(previous),
		B:        difflib.SplitLines(current),
		FromFile: name + " (previous)",
		ToFile:   name + " (current)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return PageChange{}, fmt.Errorf("diff %s: %w", name, err)
	}
	change := PageChange{
		Name:       name,
		URL:        url,
		Similarity: textutil.Similarity(previous, current),
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			change.Added++
		case strings.HasPrefix(line, "-"):
			change.Removed++
		}
	}
	if maxLines > 0 && len(lines) > maxLines {
		omitted := len(lines) - maxLines
		lines = append(lines[:maxLines], fmt.Sprintf("... %d more diff lines omitted", omitted))
		change.Truncated = true
	}
	change.Diff = strings.Join(lines, "\n")
	return change, nil
}
