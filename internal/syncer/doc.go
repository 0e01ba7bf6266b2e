// Package syncer pulls provider data into the warehouse one (provider,
// resource) unit at a time.
//
// Each unit holds a file lock keyed on its pair, picks initial or
// incremental mode from the sync_log high-watermark, pages the adapter until
// the window is exhausted (or the initial row cap is reached), upserts every
// record, and appends exactly one sync_log row describing what happened.
// Failures are recovered at the unit boundary so one broken resource never
// stops the others.
package syncer
