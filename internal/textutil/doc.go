// Package textutil holds small text helpers shared across packages: Unicode
// folding of transcripts before regex matching, filesystem-safe tokens for
// lock file names, rune-safe snippets for logs, and a word-frequency cosine
// similarity used to size documentation changes.
package textutil
