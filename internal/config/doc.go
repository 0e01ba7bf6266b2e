// Package config loads, normalizes, and validates telcosync configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as TELCO_DATABASE_URL and
// ANTHROPIC_API_KEY. Provider secrets live in a separate flat KEY=VALUE
// credentials file (see LoadCredentials) whose permissions are checked before
// it is read.
package config
