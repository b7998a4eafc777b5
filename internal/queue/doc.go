// Package queue persists QC jobs in SQLite and exposes helpers for driving
// their lifecycle.
//
// The Store manages database connections, schema initialization, atomic job
// claims, stuck-job scans, progress reads and writes, and the status
// transitions the dispatcher and reconciler rely on. A job row is the only
// shared mutable state in the system; every transition here is a single
// guarded UPDATE so concurrent dispatchers cannot double-process a job.
//
// The database is treated as transient storage for in-flight work rather
// than a long-term archive. Schema changes bump the version in schema.go;
// operators clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or fields, update schema.sql and bump schemaVersion.
package queue
