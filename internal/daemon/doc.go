// Package daemon hosts the long-running mediaqc process: single-instance
// locking, the standing scheduler that keeps dispatch and reconciliation
// ticking, and the HTTP API surface used by submitters and the CLI.
package daemon
