// Package main hosts the telcosync CLI entrypoint and command graph.
//
// Each command resolves configuration and credentials once, opens the run
// log and, where it needs one, the warehouse connection, then hands off to
// the internal packages: syncer for provider pulls, classifier and contacts
// for the derived tables, apimonitor for the documentation check.
//
// The process exit status is derived from the returned error through
// services.ExitCode so cron wrappers can tell a partial failure from a
// configuration problem or an unreachable database.
package main
