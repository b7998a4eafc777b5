// Package logging builds the slog loggers used across mediaqc.
//
// Two handler formats are supported: a compact console format for
// interactive use and JSON for ingestion. Components attach a standard
// component attribute so daemon logs stay filterable, and job-scoped log
// lines carry job_id/org_id via the shared field keys.
package logging
