package api

import (
	"encoding/json"
	"strings"
	"time"

	"mediaqc/internal/queue"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FromJob converts a persisted job into its transport view.
func FromJob(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		ID:           job.ID,
		OrgID:        job.OrgID,
		ProjectID:    job.ProjectID,
		DeliveryID:   job.DeliveryID,
		SourceType:   string(job.SourceType),
		SourcePath:   job.SourcePath,
		FileName:     job.FileName,
		QCType:       string(job.QCType),
		Status:       string(job.Status.Normalize()),
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
		Attempts:     job.Attempts,
		CreatedAt:    formatViewTime(&job.CreatedAt),
		StartedAt:    formatViewTime(job.StartedAt),
		CompletedAt:  formatViewTime(job.CompletedAt),
		UpdatedAt:    formatViewTime(&job.UpdatedAt),
	}
	if trimmed := strings.TrimSpace(job.ResultJSON); trimmed != "" && json.Valid([]byte(trimmed)) {
		view.Result = json.RawMessage(trimmed)
	}
	return view
}

// FromJobs converts a slice of persisted jobs.
func FromJobs(jobs []*queue.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	return views
}

// MergeQueueStats folds the pending alias into queued and stringifies keys.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	merged := make(map[string]int, len(stats))
	for status, count := range stats {
		merged[string(status.Normalize())] += count
	}
	return merged
}

// FromHealth converts aggregated store counts into the transport view.
func FromHealth(health queue.HealthSummary) *QueueHealth {
	return &QueueHealth{
		Total:     health.Total,
		Queued:    health.Queued,
		Running:   health.Running,
		Paused:    health.Paused,
		Completed: health.Completed,
		Failed:    health.Failed,
		Cancelled: health.Cancelled,
	}
}

func formatViewTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseViewTime parses an API timestamp for display formatting. The zero
// time is returned for empty or malformed values.
func ParseViewTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
