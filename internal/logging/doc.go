// Package logging assembles structured slog loggers and formatting helpers used
// across the warehouse jobs.
//
// A run writes full detail to the log file in log_dir and only warnings and
// errors to stderr, so cron mail stays terse while the file keeps the trail.
// Context helpers tag lines with run IDs, providers, and resource kinds.
package logging
