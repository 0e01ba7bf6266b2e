// Package apimonitor watches provider API documentation for changes.
//
// A run fetches every configured page, cuts the content container out with a
// CSS selector, strips scripts, styles and page chrome, and hashes the
// remaining text. Pages whose hash differs from the stored snapshot are
// diffed and the diffs, together with a description of this system, are
// handed to an LLM. When the model says action is required the monitor opens
// a GitHub issue and posts a notification. Snapshots live in a small SQLite
// database under the state directory. A changed page keeps its old snapshot
// when the analysis fails, so the next run diffs it again.
package apimonitor
