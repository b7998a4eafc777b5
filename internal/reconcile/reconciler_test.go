package reconcile_test

import (
	"context"
	"testing"

	"mediaqc/internal/logging"
	"mediaqc/internal/queue"
	"mediaqc/internal/reconcile"
	"mediaqc/internal/testsupport"
)

func TestRetryStuckRequeuesAndNudgesDispatch(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStuckThresholds(0, 0))
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stranded := testsupport.NewJob(t, store, "org-1", "media/stranded.mp4")
	if _, err := store.Claim(ctx, stranded.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	waiting := testsupport.NewJob(t, store, "org-1", "media/waiting.mp4")

	nudges := 0
	r := reconcile.New(cfg, store, func() { nudges++ }, logging.NewNop())

	result, err := r.RetryStuck(ctx)
	if err != nil {
		t.Fatalf("RetryStuck failed: %v", err)
	}
	if result.Examined != 2 || result.Requeued != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if nudges != 1 {
		t.Fatalf("expected one dispatch nudge, got %d", nudges)
	}

	for _, id := range []string{stranded.ID, waiting.ID} {
		job, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status != queue.StatusQueued {
			t.Fatalf("expected %s requeued, got %s", id, job.Status)
		}
		if job.Progress != 0 || job.StartedAt != nil {
			t.Fatalf("expected execution state reset, got %#v", job)
		}
	}
}

func TestRetryStuckLeavesFreshJobsAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStuckThresholds(60, 60))
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	fresh := testsupport.NewJob(t, store, "org-1", "media/fresh.mp4")
	if _, err := store.Claim(ctx, fresh.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	nudges := 0
	r := reconcile.New(cfg, store, func() { nudges++ }, logging.NewNop())

	result, err := r.RetryStuck(ctx)
	if err != nil {
		t.Fatalf("RetryStuck failed: %v", err)
	}
	if result.Examined != 0 || result.Requeued != 0 {
		t.Fatalf("expected nothing stuck, got %+v", result)
	}
	if nudges != 0 {
		t.Fatalf("expected no dispatch nudge, got %d", nudges)
	}

	job, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job.Status != queue.StatusRunning {
		t.Fatalf("expected fresh job untouched, got %s", job.Status)
	}
}

func TestCancelStuckCancelsThresholdBreachers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStuckThresholds(0, 0))
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stranded := testsupport.NewJob(t, store, "org-1", "media/stranded.mp4")
	if _, err := store.Claim(ctx, stranded.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	r := reconcile.New(cfg, store, nil, logging.NewNop())
	result, err := r.CancelStuck(ctx)
	if err != nil {
		t.Fatalf("CancelStuck failed: %v", err)
	}
	if result.Examined != 1 || result.Cancelled != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	job, err := store.GetByID(ctx, stranded.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", job.Status)
	}
	if job.Progress != 100 {
		t.Fatalf("expected terminal progress, got %d", job.Progress)
	}
}

func TestRetrySpecificTouchesOnlyRequeueableJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	running := testsupport.NewJob(t, store, "org-1", "media/running.mp4")
	if _, err := store.Claim(ctx, running.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	failed := testsupport.NewJob(t, store, "org-1", "media/failed.mp4")
	if _, err := store.Claim(ctx, failed.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := store.Fail(ctx, failed.ID, "boom"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	r := reconcile.New(cfg, store, nil, logging.NewNop())
	result, err := r.RetrySpecific(ctx, running.ID, failed.ID)
	if err != nil {
		t.Fatalf("RetrySpecific failed: %v", err)
	}
	if result.Examined != 2 || result.Requeued != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	requeued, err := store.GetByID(ctx, running.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if requeued.Status != queue.StatusQueued {
		t.Fatalf("expected running job requeued, got %s", requeued.Status)
	}

	still, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if still.Status != queue.StatusFailed {
		t.Fatalf("expected failed job untouched, got %s", still.Status)
	}
}
