package api_test

import (
	"context"
	"errors"
	"testing"

	"mediaqc/internal/api"
	"mediaqc/internal/queue"
	"mediaqc/internal/testsupport"
)

func newService(t *testing.T) (*api.QueueService, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return api.NewQueueService(store), store
}

func TestSubmitCreatesQueuedJob(t *testing.T) {
	svc, _ := newService(t)

	job, err := svc.Submit(context.Background(), api.SubmitRequest{
		OrgID:      "org-1",
		ProjectID:  "project-1",
		SourceType: "upload",
		SourcePath: "media/sample.mp4",
		FileName:   "sample.mp4",
		QCType:     "full",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if job.Status != "queued" || job.Progress != 0 {
		t.Fatalf("unexpected submitted job: %#v", job)
	}
	if job.QCType != "full" || job.SourceType != "upload" {
		t.Fatalf("unexpected normalized fields: %#v", job)
	}
	if job.CreatedAt == "" {
		t.Fatal("expected created timestamp")
	}
}

func TestSubmitValidatesRequest(t *testing.T) {
	svc, _ := newService(t)

	cases := []api.SubmitRequest{
		{OrgID: "org-1", ProjectID: "p", SourceType: "carrier_pigeon", SourcePath: "x", QCType: "basic"},
		{OrgID: "org-1", ProjectID: "p", SourceType: "upload", SourcePath: "x", QCType: "exhaustive"},
		{ProjectID: "p", SourceType: "upload", SourcePath: "x", QCType: "basic"},
		{OrgID: "org-1", ProjectID: "p", SourceType: "upload", QCType: "basic"},
	}
	for i, req := range cases {
		_, err := svc.Submit(context.Background(), req)
		if !errors.Is(err, api.ErrInvalidSubmission) {
			t.Fatalf("case %d: expected ErrInvalidSubmission, got %v", i, err)
		}
	}
}

func TestDescribeReturnsNilForUnknownJob(t *testing.T) {
	svc, _ := newService(t)

	job, err := svc.Describe(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for unknown id, got %#v", job)
	}
}

func TestCancelQueuedJob(t *testing.T) {
	svc, store := newService(t)

	ctx := context.Background()
	created := testsupport.NewJob(t, store, "org-1", "media/cancel-me.mp4")

	job, err := svc.Cancel(ctx, created.ID, "changed my mind")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if job.Status != "cancelled" {
		t.Fatalf("expected cancelled, got %s", job.Status)
	}
	if job.Progress != 100 {
		t.Fatalf("expected terminal progress, got %d", job.Progress)
	}
}

func TestCancelCompletedJobConflicts(t *testing.T) {
	svc, store := newService(t)

	ctx := context.Background()
	created := testsupport.NewJob(t, store, "org-1", "media/done.mp4")
	if _, err := store.Claim(ctx, created.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := store.Complete(ctx, created.ID, `{"passed":true}`); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	_, err := svc.Cancel(ctx, created.ID, "")
	if !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCancelUnknownJobReturnsNil(t *testing.T) {
	svc, _ := newService(t)

	job, err := svc.Cancel(context.Background(), "no-such-job", "")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for unknown id, got %#v", job)
	}
}

func TestCancelCancelledJobIsIdempotent(t *testing.T) {
	svc, store := newService(t)

	ctx := context.Background()
	created := testsupport.NewJob(t, store, "org-1", "media/twice.mp4")
	if _, err := svc.Cancel(ctx, created.ID, "first"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	job, err := svc.Cancel(ctx, created.ID, "second")
	if err != nil {
		t.Fatalf("repeat Cancel failed: %v", err)
	}
	if job.Status != "cancelled" {
		t.Fatalf("expected cancelled, got %s", job.Status)
	}
}

func TestClearKeepsActiveJobsByDefault(t *testing.T) {
	svc, store := newService(t)

	ctx := context.Background()
	active := testsupport.NewJob(t, store, "org-1", "media/still-queued.mp4")
	done := testsupport.NewJob(t, store, "org-1", "media/finished.mp4")
	if _, err := store.Claim(ctx, done.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := store.Complete(ctx, done.ID, `{"passed":true}`); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	removed, err := svc.Clear(ctx, false)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removed row, got %d", removed)
	}
	if _, err := store.GetByID(ctx, active.ID); err != nil {
		t.Fatalf("expected queued job to survive, got %v", err)
	}

	removed, err = svc.Clear(ctx, true)
	if err != nil {
		t.Fatalf("Clear all failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected the remaining row removed, got %d", removed)
	}
	if _, err := store.GetByID(ctx, active.ID); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected queued job gone after full clear, got %v", err)
	}
}

func TestStatsMergePendingIntoQueued(t *testing.T) {
	svc, store := newService(t)

	ctx := context.Background()
	testsupport.NewJob(t, store, "org-1", "media/a.mp4")
	legacy := testsupport.NewJob(t, store, "org-1", "media/b.mp4")
	legacy.Status = queue.StatusPending
	if err := store.Update(ctx, legacy); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["queued"] != 2 {
		t.Fatalf("expected pending merged into queued, got %#v", stats)
	}
	if _, exists := stats["pending"]; exists {
		t.Fatalf("expected no pending bucket, got %#v", stats)
	}
}

func TestListByOrgFiltersStatuses(t *testing.T) {
	svc, store := newService(t)

	ctx := context.Background()
	mine := testsupport.NewJob(t, store, "org-1", "media/mine.mp4")
	other := testsupport.NewJob(t, store, "org-1", "media/other.mp4")
	if _, err := store.Claim(ctx, other.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	testsupport.NewJob(t, store, "org-2", "media/else.mp4")

	jobs, err := svc.ListByOrg(ctx, "org-1", []queue.Status{queue.StatusQueued}, 0)
	if err != nil {
		t.Fatalf("ListByOrg failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != mine.ID {
		t.Fatalf("expected only the queued org-1 job, got %#v", jobs)
	}
}
