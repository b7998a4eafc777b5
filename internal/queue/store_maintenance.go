package queue

import (
	"context"
	"fmt"
	"time"
)

// StuckRunning returns running jobs whose reference time (started_at,
// falling back to created_at) is older than cutoff, regardless of progress.
func (s *Store) StuckRunning(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
        WHERE status = ? AND COALESCE(started_at, created_at) < ?
        ORDER BY created_at`
	jobs, err := s.queryJobs(ctx, query, StatusRunning, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("scan stuck running: %w", err)
	}
	return jobs, nil
}

// ListByOrgOlderThan returns one organization's jobs in the given statuses
// whose created_at is older than cutoff, oldest first. An empty status set
// matches every status.
func (s *Store) ListByOrgOlderThan(ctx context.Context, orgID string, statuses []Status, cutoff time.Time) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE org_id = ? AND created_at < ?`
	args := []any{orgID, cutoff.UTC().Format(time.RFC3339Nano)}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at`
	jobs, err := s.queryJobs(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs by age: %w", err)
	}
	return jobs, nil
}

// StuckQueued returns queued jobs created before cutoff that no dispatcher
// has picked up.
func (s *Store) StuckQueued(ctx context.Context, cutoff time.Time) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
        WHERE status IN (?, ?) AND created_at < ?
        ORDER BY created_at`
	jobs, err := s.queryJobs(ctx, query, StatusQueued, StatusPending, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("scan stuck queued: %w", err)
	}
	return jobs, nil
}
