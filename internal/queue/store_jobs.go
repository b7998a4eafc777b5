package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const jobColumns = "id, org_id, project_id, delivery_id, source_type, source_path, file_name, qc_type, status, progress, result_json, error_message, attempts, created_at, started_at, completed_at, updated_at"

// NewJobParams describes a job submission. OrgID, ProjectID, SourceType,
// SourcePath, and QCType are required; DeliveryID and FileName are optional.
type NewJobParams struct {
	OrgID      string
	ProjectID  string
	DeliveryID string
	SourceType SourceType
	SourcePath string
	FileName   string
	QCType     QCType
}

// Validate reports the first missing or malformed required field.
func (p NewJobParams) Validate() error {
	if strings.TrimSpace(p.OrgID) == "" {
		return errors.New("org id is required")
	}
	if strings.TrimSpace(p.ProjectID) == "" {
		return errors.New("project id is required")
	}
	if _, ok := ParseSourceType(string(p.SourceType)); !ok {
		return fmt.Errorf("unknown source type %q", p.SourceType)
	}
	if strings.TrimSpace(p.SourcePath) == "" {
		return errors.New("source path is required")
	}
	if _, ok := ParseQCType(string(p.QCType)); !ok {
		return fmt.Errorf("unknown qc type %q", p.QCType)
	}
	return nil
}

// CreateJob inserts a new job in queued state with zero progress.
func (s *Store) CreateJob(ctx context.Context, params NewJobParams) (*Job, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, org_id, project_id, delivery_id, source_type, source_path,
            file_name, qc_type, status, progress, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id,
		params.OrgID,
		params.ProjectID,
		nullableString(params.DeliveryID),
		params.SourceType,
		params.SourcePath,
		nullableString(params.FileName),
		params.QCType,
		StatusQueued,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Returns ErrNotFound when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetByIDs fetches the jobs matching the provided identifiers. Missing ids
// are skipped rather than reported.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]*Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id IN (` + placeholders + `) ORDER BY created_at`
	return s.queryJobs(ctx, query, args...)
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		return s.queryJobs(ctx, baseQuery+orderClause)
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return s.queryJobs(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
}

// ListByOrg returns jobs for one organization filtered by status, oldest
// first, capped at limit (0 means no cap).
func (s *Store) ListByOrg(ctx context.Context, orgID string, statuses []Status, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE org_id = ?`
	args := []any{orgID}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryJobs(ctx, query, args...)
}

// Update persists changes to an existing job row. Status transitions should
// go through the guarded transition helpers instead; Update is for field
// edits on a job the caller already owns.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET org_id = ?, project_id = ?, delivery_id = ?, source_type = ?,
             source_path = ?, file_name = ?, qc_type = ?, status = ?,
             progress = ?, result_json = ?, error_message = ?, attempts = ?,
             started_at = ?, completed_at = ?, updated_at = ?
         WHERE id = ?`,
		job.OrgID,
		job.ProjectID,
		nullableString(job.DeliveryID),
		job.SourceType,
		job.SourcePath,
		nullableString(job.FileName),
		job.QCType,
		job.Status,
		job.Progress,
		nullableString(job.ResultJSON),
		nullableString(job.ErrorMessage),
		job.Attempts,
		nullableTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearTerminal removes completed, failed, and cancelled jobs.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE status IN (?, ?, ?)`,
		StatusCompleted, StatusFailed, StatusCancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("clear terminal jobs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status.Normalize() {
		case StatusQueued:
			health.Queued += count
		case StatusRunning:
			health.Running += count
		case StatusPaused:
			health.Paused += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		case StatusCancelled:
			health.Cancelled += count
		}
	}
	return health, nil
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		orgID        string
		projectID    string
		deliveryID   sql.NullString
		sourceType   string
		sourcePath   string
		fileName     sql.NullString
		qcType       string
		statusStr    string
		progress     int
		resultJSON   sql.NullString
		errorMessage sql.NullString
		attempts     int
		createdRaw   sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&orgID,
		&projectID,
		&deliveryID,
		&sourceType,
		&sourcePath,
		&fileName,
		&qcType,
		&statusStr,
		&progress,
		&resultJSON,
		&errorMessage,
		&attempts,
		&createdRaw,
		&startedRaw,
		&completedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		OrgID:        orgID,
		ProjectID:    projectID,
		DeliveryID:   deliveryID.String,
		SourceType:   SourceType(sourceType),
		SourcePath:   sourcePath,
		FileName:     fileName.String,
		QCType:       QCType(qcType),
		Status:       Status(statusStr),
		Progress:     progress,
		ResultJSON:   resultJSON.String,
		ErrorMessage: errorMessage.String,
		Attempts:     attempts,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
