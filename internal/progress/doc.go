// Package progress serves lightweight polling snapshots of job state.
//
// Snapshots carry status, percent, and the failure message only; full QC
// reports stay out of the polling path and are fetched per job on demand.
package progress
