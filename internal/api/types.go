package api

import "encoding/json"

// JobView describes a QC job in a transport-friendly format.
type JobView struct {
	ID           string          `json:"id"`
	OrgID        string          `json:"orgId"`
	ProjectID    string          `json:"projectId"`
	DeliveryID   string          `json:"deliveryId,omitempty"`
	SourceType   string          `json:"sourceType"`
	SourcePath   string          `json:"sourcePath"`
	FileName     string          `json:"fileName,omitempty"`
	QCType       string          `json:"qcType"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Attempts     int             `json:"attempts"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	StartedAt    string          `json:"startedAt,omitempty"`
	CompletedAt  string          `json:"completedAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// SubmitRequest carries the fields needed to enqueue a new job.
type SubmitRequest struct {
	OrgID      string `json:"orgId"`
	ProjectID  string `json:"projectId"`
	DeliveryID string `json:"deliveryId"`
	SourceType string `json:"sourceType"`
	SourcePath string `json:"sourcePath"`
	FileName   string `json:"fileName"`
	QCType     string `json:"qcType"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// QueueStatsResponse provides queue counts keyed by status string.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// DispatchResponse reports the outcome of an explicit dispatch trigger.
type DispatchResponse struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// ReconcileResponse reports the outcome of a stuck-job operation.
type ReconcileResponse struct {
	Examined  int `json:"examined"`
	Requeued  int `json:"requeued"`
	Cancelled int `json:"cancelled"`
}

// ClearResponse reports how many job rows a clear removed.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueHealth summarizes queue row counts per lifecycle state.
type QueueHealth struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Paused    int `json:"paused"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	QueueStats   map[string]int `json:"queueStats"`
	Health       *QueueHealth   `json:"health,omitempty"`
}
