package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ProgressSnapshot is the cheap polling view of a job. It deliberately
// excludes the result payload so sub-second pollers stay inexpensive.
type ProgressSnapshot struct {
	ID       string `json:"id"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

// Progress returns snapshots for the requested jobs. When ids is empty it
// returns the organization's non-terminal jobs, most recently updated first,
// capped at limit.
func (s *Store) Progress(ctx context.Context, orgID string, ids []string, limit int) ([]ProgressSnapshot, error) {
	query := `SELECT id, status, progress, error_message FROM jobs WHERE org_id = ?`
	args := []any{orgID}

	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	} else {
		active := ActiveStatuses()
		query += ` AND status IN (` + makePlaceholders(len(active)) + `)`
		for _, status := range active {
			args = append(args, status)
		}
	}

	query += ` ORDER BY updated_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var snapshots []ProgressSnapshot
	for rows.Next() {
		var (
			snapshot ProgressSnapshot
			errMsg   sql.NullString
		)
		if err := rows.Scan(&snapshot.ID, &snapshot.Status, &snapshot.Progress, &errMsg); err != nil {
			return nil, err
		}
		snapshot.Error = errMsg.String
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// SetProgress writes a mid-analysis progress value. The guard clamps the
// write to running jobs and drops regressions so progress stays monotone
// even when a stale percent arrives late.
func (s *Store) SetProgress(ctx context.Context, id string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET progress = ?, updated_at = ?
         WHERE id = ? AND status = ? AND progress <= ?`,
		percent,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusRunning,
		percent,
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}
