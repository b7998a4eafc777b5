package queue

import (
	"context"
	"fmt"
	"time"
)

// SelectQueued returns up to limit claimable jobs, oldest first. Selection is
// advisory: callers must still Claim each job before working on it.
func (s *Store) SelectQueued(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (?, ?) ORDER BY created_at LIMIT ?`
	return s.queryJobs(ctx, query, StatusQueued, StatusPending, limit)
}

// Claim atomically moves a queued job to running. The status guard makes the
// claim exclusive: when two dispatchers race for the same job, exactly one
// sees an affected row.
func (s *Store) Claim(ctx context.Context, id string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, started_at = ?, progress = 0, error_message = NULL,
             attempts = attempts + 1, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusRunning,
		now,
		now,
		id,
		StatusQueued,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// Complete records a successful analysis. The running guard drops the result
// when the job was cancelled or requeued while the analyzer was working.
func (s *Store) Complete(ctx context.Context, id string, resultJSON string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress = 100, result_json = ?, error_message = NULL,
             completed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted,
		resultJSON,
		now,
		now,
		id,
		StatusRunning,
	)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// Fail records an analyzer failure on the job row. Like Complete, the
// running guard keeps a concurrent cancel or requeue authoritative.
func (s *Store) Fail(ctx context.Context, id string, message string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress = 100, error_message = ?, completed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed,
		message,
		now,
		now,
		id,
		StatusRunning,
	)
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// Cancel moves a non-terminal job to cancelled. In-flight analysis is not
// interrupted; the terminal-write guards stop its result from landing.
func (s *Store) Cancel(ctx context.Context, id string, reason string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress = 100, error_message = ?, completed_at = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?, ?, ?)`,
		StatusCancelled,
		reason,
		now,
		now,
		id,
		StatusQueued,
		StatusPending,
		StatusRunning,
		StatusPaused,
	)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// Requeue resets jobs back to queued for another attempt: progress zeroed,
// error and started timestamps cleared. Only queued and running jobs may be
// requeued; other rows in ids are left untouched.
func (s *Store) Requeue(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+5)
	args = append(args, StatusQueued, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusQueued, StatusPending, StatusRunning)
	query := `UPDATE jobs
        SET status = ?, progress = 0, error_message = NULL,
            started_at = NULL, completed_at = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status IN (?, ?, ?)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("requeue jobs: %w", err)
	}
	return res.RowsAffected()
}
