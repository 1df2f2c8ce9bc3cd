// Package store persists reelcast state in a single SQLite database.
//
// Four tables live here: series and episodes (catalog metadata plus local
// media paths), download_tasks (the durable download queue) and
// publish_records (one per episode, tracking the remote upload lifecycle).
// Keeping them in one database lets foreign keys cascade a series deletion
// to everything that references it.
//
// Download tasks move pending -> processing -> completed|failed. Claiming is
// a single conditional UPDATE so concurrent processors never receive the
// same task. Failed tasks only return to pending through RequeueFailed.
//
// Schema changes bump schemaVersion in schema.go, which is kept in PRAGMA
// user_version; a database written with another version must be removed
// before the new schema is adopted.
package store
