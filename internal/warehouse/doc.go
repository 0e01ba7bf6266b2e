// Package warehouse owns the PostgreSQL `telco` schema: the idempotent
// migrator, the provider upserts used by the sync engine, the sync_log
// high-watermark, and the contact and classification queries.
//
// All writes are row-scoped upserts. Upserts merge only non-null incoming
// values, never replace a stored transcript with an empty one, and carry an
// IS DISTINCT FROM guard so replaying an identical record touches no rows.
package warehouse
