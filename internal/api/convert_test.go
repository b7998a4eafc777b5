package api_test

import (
	"testing"
	"time"

	"mediaqc/internal/api"
	"mediaqc/internal/queue"
)

func TestFromJobMapsFields(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	started := created.Add(time.Minute)
	job := &queue.Job{
		ID:         "0c5b9e54-1111-2222-3333-444455556666",
		OrgID:      "org-1",
		ProjectID:  "project-1",
		SourceType: queue.SourceUpload,
		SourcePath: "media/a.mp4",
		FileName:   "a.mp4",
		QCType:     queue.QCFull,
		Status:     queue.StatusPending,
		Progress:   40,
		ResultJSON: `{"passed":true}`,
		Attempts:   2,
		CreatedAt:  created,
		StartedAt:  &started,
		UpdatedAt:  started,
	}

	view := api.FromJob(job)
	if view.Status != "queued" {
		t.Fatalf("expected pending alias normalized, got %s", view.Status)
	}
	if view.CreatedAt != "2025-03-14T09:26:53.000Z" {
		t.Fatalf("unexpected created timestamp %s", view.CreatedAt)
	}
	if view.CompletedAt != "" {
		t.Fatalf("expected empty completed timestamp, got %s", view.CompletedAt)
	}
	if string(view.Result) != `{"passed":true}` {
		t.Fatalf("unexpected result payload %s", view.Result)
	}
	if view.Attempts != 2 || view.Progress != 40 {
		t.Fatalf("unexpected counters in %#v", view)
	}
}

func TestFromJobDropsMalformedResult(t *testing.T) {
	job := &queue.Job{ID: "x", Status: queue.StatusCompleted, ResultJSON: "{broken"}
	view := api.FromJob(job)
	if view.Result != nil {
		t.Fatalf("expected malformed result omitted, got %s", view.Result)
	}
}

func TestParseViewTimeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	job := &queue.Job{ID: "x", Status: queue.StatusQueued, CreatedAt: now, UpdatedAt: now}
	view := api.FromJob(job)

	parsed := api.ParseViewTime(view.CreatedAt)
	if !parsed.Equal(now) {
		t.Fatalf("round trip mismatch: %v != %v", parsed, now)
	}
	if !api.ParseViewTime("garbage").IsZero() {
		t.Fatal("expected zero time for malformed value")
	}
	if !api.ParseViewTime("").IsZero() {
		t.Fatal("expected zero time for empty value")
	}
}
