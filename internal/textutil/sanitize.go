package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeToken turns a provider or resource name into a lowercase token safe
// for lock-file names. Runs of any other characters collapse to a single
// underscore. An empty result becomes "unknown".
func SanitizeToken(value string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// Snippet truncates text to at most limit runes, appending "..." when cut.
func Snippet(text string, limit int) string {
	text = CollapseWhitespace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
