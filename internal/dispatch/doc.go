// Package dispatch selects queued QC jobs and drives them through analysis.
//
// The Dispatcher claims up to a configured number of queued jobs per pass
// and hands each to the Worker; the Worker runs exactly one job to a
// terminal state. Claims are atomic (guarded UPDATE in the queue store), so
// overlapping dispatch passes from different trigger surfaces can never
// double-process a job. Every trigger path (submission, polling, operator
// action, the daemon scheduler) funnels into Dispatch, which coalesces
// overlapping calls to keep effective concurrency at the configured cap.
//
// Job-level failures are recorded on the job row and never abort the batch;
// only job-store connectivity errors propagate to callers.
package dispatch
