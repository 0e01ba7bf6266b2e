package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// punctuation maps typographic characters that speech-to-text engines emit
// to their ASCII forms so patterns written with ' and - still match.
var punctuation = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"‛", "'",
	"ʼ", "'",
	"“", `"`,
	"”", `"`,
	"‐", "-",
	"‑", "-",
	"‒", "-",
	"–", "-",
	"—", "-",
	" ", " ",
)

// Fold returns text in NFKC form, case folded, with typographic quotes and
// dashes replaced and runs of whitespace collapsed to one space.
func Fold(text string) string {
	if text == "" {
		return ""
	}
	folded := cases.Fold().String(norm.NFKC.String(text))
	folded = punctuation.Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// CollapseWhitespace trims text and collapses runs of whitespace.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
