package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a QC job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusPending Status = "pending" // legacy alias of queued written by older submitters
	StatusRunning Status = "running"

	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"

	StatusPaused Status = "paused"
)

var allStatuses = []Status{
	StatusQueued,
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
	StatusPaused,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// validTransitions is the closed transition table. Requeue (back to queued)
// and cancellation are the only transitions with more than one source state.
var validTransitions = map[Status][]Status{
	StatusQueued:  {StatusRunning, StatusCancelled, StatusQueued},
	StatusPending: {StatusRunning, StatusCancelled, StatusQueued},
	StatusRunning: {StatusCompleted, StatusFailed, StatusCancelled, StatusQueued},
	StatusPaused:  {StatusCancelled},
}

// SourceType identifies where the job's media bytes come from.
type SourceType string

const (
	SourceUpload    SourceType = "upload"
	SourceDriveLink SourceType = "drive_link"
)

// QCType selects the analyzer profile for a job.
type QCType string

const (
	QCBasic QCType = "basic"
	QCFull  QCType = "full"
)

// Job represents a QC analysis job persisted in SQLite.
type Job struct {
	ID           string
	OrgID        string
	ProjectID    string
	DeliveryID   string
	SourceType   SourceType
	SourcePath   string
	FileName     string
	QCType       QCType
	Status       Status
	Progress     int
	ResultJSON   string
	ErrorMessage string
	Attempts     int
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Normalize collapses the legacy pending alias onto queued.
func (s Status) Normalize() Status {
	if s == StatusPending {
		return StatusQueued
	}
	return s
}

// IsTerminal reports whether the status is a terminal state.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// CanTransition reports whether from -> to is a valid lifecycle transition.
// The pending alias is treated as queued on both sides.
func CanTransition(from, to Status) bool {
	if to == StatusPending {
		to = StatusQueued
	}
	for _, candidate := range validTransitions[from] {
		if candidate.Normalize() == to {
			return true
		}
	}
	return false
}

// QueueableStatuses returns the statuses the dispatcher may claim from.
func QueueableStatuses() []Status {
	return []Status{StatusQueued, StatusPending}
}

// ActiveStatuses returns every non-terminal status, used by the progress
// reporter when no explicit job ids are requested.
func ActiveStatuses() []Status {
	return []Status{StatusQueued, StatusPending, StatusRunning, StatusPaused}
}

// ParseSourceType converts a string into a known SourceType.
func ParseSourceType(value string) (SourceType, bool) {
	switch SourceType(strings.ToLower(strings.TrimSpace(value))) {
	case SourceUpload:
		return SourceUpload, true
	case SourceDriveLink:
		return SourceDriveLink, true
	}
	return "", false
}

// ParseQCType converts a string into a known QCType.
func ParseQCType(value string) (QCType, bool) {
	switch QCType(strings.ToLower(strings.TrimSpace(value))) {
	case QCBasic:
		return QCBasic, true
	case QCFull:
		return QCFull, true
	}
	return "", false
}

// IsTerminal reports whether the job has reached a terminal state.
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// RunningSince returns the reference time for the running stuck check:
// startedAt when set, createdAt otherwise.
func (j Job) RunningSince() time.Time {
	if j.StartedAt != nil {
		return *j.StartedAt
	}
	return j.CreatedAt
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total     int
	Queued    int
	Running   int
	Paused    int
	Completed int
	Failed    int
	Cancelled int
}
