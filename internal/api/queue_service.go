package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediaqc/internal/queue"
)

// QueueStore abstracts the queue persistence operations the services need.
type QueueStore interface {
	CreateJob(ctx context.Context, params queue.NewJobParams) (*queue.Job, error)
	GetByID(ctx context.Context, id string) (*queue.Job, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	ListByOrg(ctx context.Context, orgID string, statuses []queue.Status, limit int) ([]*queue.Job, error)
	ListByOrgOlderThan(ctx context.Context, orgID string, statuses []queue.Status, cutoff time.Time) ([]*queue.Job, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	Cancel(ctx context.Context, id string, reason string) (bool, error)
	Clear(ctx context.Context) (int64, error)
	ClearTerminal(ctx context.Context) (int64, error)
}

// ErrInvalidSubmission wraps submission validation failures so transports
// can map them to a client error.
var ErrInvalidSubmission = errors.New("invalid submission")

// ErrConflict marks operations rejected because of the job's current state.
var ErrConflict = errors.New("conflict")

// QueueService exposes queue operations returning API DTOs.
type QueueService struct {
	store QueueStore
}

// NewQueueService constructs a QueueService around the provided store.
func NewQueueService(store QueueStore) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// Submit validates the request and enqueues a new job.
func (s *QueueService) Submit(ctx context.Context, req SubmitRequest) (*JobView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	params, err := submitParams(req)
	if err != nil {
		return nil, err
	}
	job, err := s.store.CreateJob(ctx, params)
	if err != nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// List returns jobs filtered by status, or the whole queue without filters.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]JobView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// ListByOrg returns an organization's jobs, optionally filtered by status.
func (s *QueueService) ListByOrg(ctx context.Context, orgID string, statuses []queue.Status, limit int) ([]JobView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.ListByOrg(ctx, orgID, statuses, limit)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// ListByOrgOlderThan returns an organization's jobs created before the
// cutoff, optionally filtered by status.
func (s *QueueService) ListByOrgOlderThan(ctx context.Context, orgID string, statuses []queue.Status, cutoff time.Time) ([]JobView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	jobs, err := s.store.ListByOrgOlderThan(ctx, orgID, statuses, cutoff)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe fetches a single job; nil when the id is unknown.
func (s *QueueService) Describe(ctx context.Context, id string) (*JobView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// Stats returns queue summary counts keyed by status string.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Cancel requests cancellation of a job; nil when the id is unknown.
// Cancellation is advisory for running jobs: the row flips immediately and
// any in-flight analyzer result is dropped when it lands. Cancelling an
// already-cancelled job is idempotent; other terminal states conflict.
func (s *QueueService) Cancel(ctx context.Context, id, reason string) (*JobView, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	if strings.TrimSpace(reason) == "" {
		reason = "cancelled by operator"
	}
	cancelled, err := s.store.Cancel(ctx, id, reason)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !cancelled && job.Status != queue.StatusCancelled {
		return nil, fmt.Errorf("%w: job %s already %s", ErrConflict, id, job.Status)
	}
	view := FromJob(job)
	return &view, nil
}

// Clear removes finished job rows, or every row when all is set. Active
// rows survive a default clear so a schema reset never races a worker.
func (s *QueueService) Clear(ctx context.Context, all bool) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	if all {
		return s.store.Clear(ctx)
	}
	return s.store.ClearTerminal(ctx)
}

func submitParams(req SubmitRequest) (queue.NewJobParams, error) {
	sourceType, ok := queue.ParseSourceType(req.SourceType)
	if !ok {
		return queue.NewJobParams{}, fmt.Errorf("%w: unknown source type %q", ErrInvalidSubmission, req.SourceType)
	}
	qcType, ok := queue.ParseQCType(req.QCType)
	if !ok {
		return queue.NewJobParams{}, fmt.Errorf("%w: unknown qc type %q", ErrInvalidSubmission, req.QCType)
	}
	params := queue.NewJobParams{
		OrgID:      strings.TrimSpace(req.OrgID),
		ProjectID:  strings.TrimSpace(req.ProjectID),
		DeliveryID: strings.TrimSpace(req.DeliveryID),
		SourceType: sourceType,
		SourcePath: strings.TrimSpace(req.SourcePath),
		FileName:   strings.TrimSpace(req.FileName),
		QCType:     qcType,
	}
	if err := params.Validate(); err != nil {
		return queue.NewJobParams{}, fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	return params, nil
}
