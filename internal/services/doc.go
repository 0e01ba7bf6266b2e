// Package services defines shared utilities consumed by the sync engine,
// classifier, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, provider names, resource kinds, and
//     Retell workspace ids for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into sync_log statuses and CLI exit codes.
//
// Use these helpers when wiring new adapters or jobs so error handling and
// observability stay uniform across the warehouse.
package services
