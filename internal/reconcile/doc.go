// Package reconcile recovers jobs that stopped making progress.
//
// A running job whose worker died leaves a row stranded in running state; a
// queued job can sit past its threshold when dispatch capacity misbehaves.
// The Reconciler scans for both cases using the configured age thresholds
// and either requeues them for a fresh attempt or cancels them outright,
// depending on the operation invoked. Requeue operations nudge the
// dispatcher afterwards so recovered jobs do not wait for the next
// scheduled pass.
package reconcile
