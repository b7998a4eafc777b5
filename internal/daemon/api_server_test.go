package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"mediaqc/internal/analysis"
	"mediaqc/internal/api"
	"mediaqc/internal/config"
	"mediaqc/internal/daemon"
	"mediaqc/internal/dispatch"
	"mediaqc/internal/logging"
	"mediaqc/internal/progress"
	"mediaqc/internal/queue"
	"mediaqc/internal/testsupport"
)

type passAnalyzer struct{}

func (passAnalyzer) Analyze(_ context.Context, src analysis.SourceRef, profile queue.QCType, progressFn analysis.ProgressFunc) (*analysis.Report, error) {
	if progressFn != nil {
		progressFn(50)
	}
	return &analysis.Report{Profile: profile, FileName: src.FileName, Passed: true}, nil
}

type identityResolver struct{}

func (identityResolver) Resolve(_ context.Context, job *queue.Job) (analysis.SourceRef, func(), error) {
	return analysis.SourceRef{Path: job.SourcePath, FileName: job.FileName}, func() {}, nil
}

func startTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, *config.Config, *queue.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, daemon.Deps{
		Store:      store,
		Dispatcher: dispatch.New(cfg, store, passAnalyzer{}, identityResolver{}, logger),
		Reporter:   progress.New(cfg, store, logger),
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start failed: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})
	return d, cfg, store
}

func apiURL(d *daemon.Daemon, path string) string {
	return "http://" + d.APIAddr() + path
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: unexpected status %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestStatusEndpointReportsRunningDaemon(t *testing.T) {
	d, _, _ := startTestDaemon(t)

	var status api.DaemonStatus
	getJSON(t, apiURL(d, "/api/status"), &status)

	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.QueueDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("expected paths in status, got %#v", status)
	}
	if status.Health == nil {
		t.Fatal("expected queue health in status")
	}
	if status.Health.Total != 0 {
		t.Fatalf("expected empty queue, got %#v", status.Health)
	}
}

func TestSubmitJobIsProcessedByScheduler(t *testing.T) {
	d, _, _ := startTestDaemon(t)

	body, _ := json.Marshal(api.SubmitRequest{
		OrgID:      "org-1",
		ProjectID:  "project-1",
		SourceType: "upload",
		SourcePath: "media/sample.mp4",
		FileName:   "sample.mp4",
		QCType:     "basic",
	})
	resp, err := http.Post(apiURL(d, "/api/jobs"), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/jobs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status %s", resp.Status)
	}
	var created api.JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Job.Status != "queued" {
		t.Fatalf("expected queued submission, got %s", created.Job.Status)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var fetched api.JobResponse
		getJSON(t, apiURL(d, "/api/jobs/"+created.Job.ID), &fetched)
		if fetched.Job.Status == "completed" {
			if fetched.Job.Progress != 100 {
				t.Fatalf("expected progress 100, got %d", fetched.Job.Progress)
			}
			if len(fetched.Job.Result) == 0 {
				t.Fatal("expected QC report on completed job")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never completed, last status %s", fetched.Job.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	d, _, _ := startTestDaemon(t)

	body := []byte(`{"orgId":"org-1","projectId":"p","sourceType":"smoke_signal","sourcePath":"x","qcType":"basic"}`)
	resp, err := http.Post(apiURL(d, "/api/jobs"), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/jobs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %s", resp.Status)
	}
}

func TestCancelEndpointConflictsOnTerminalJob(t *testing.T) {
	d, _, store := startTestDaemon(t)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "org-1", "media/finished.mp4")
	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := store.Complete(ctx, job.ID, `{"passed":true}`); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	resp, err := http.Post(apiURL(d, "/api/jobs/"+job.ID+"/cancel"), "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("POST cancel: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %s", resp.Status)
	}
}

func TestCancelEndpointReturns404ForUnknownJob(t *testing.T) {
	d, _, _ := startTestDaemon(t)

	resp, err := http.Post(apiURL(d, "/api/jobs/no-such-job/cancel"), "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("POST cancel: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %s", resp.Status)
	}
}

func TestClearEndpointRemovesFinishedJobs(t *testing.T) {
	d, _, store := startTestDaemon(t)

	ctx := context.Background()
	active := testsupport.NewJob(t, store, "org-1", "media/keep.mp4")
	done := testsupport.NewJob(t, store, "org-1", "media/drop.mp4")
	if _, err := store.Claim(ctx, done.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := store.Fail(ctx, done.ID, "boom"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	req, err := http.NewRequest(http.MethodDelete, apiURL(d, "/api/jobs"), nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /api/jobs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %s", resp.Status)
	}
	var cleared api.ClearResponse
	if err := json.NewDecoder(resp.Body).Decode(&cleared); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if cleared.Removed != 1 {
		t.Fatalf("expected one removed row, got %d", cleared.Removed)
	}

	var remaining api.JobListResponse
	getJSON(t, apiURL(d, "/api/jobs"), &remaining)
	if len(remaining.Jobs) != 1 || remaining.Jobs[0].ID != active.ID {
		t.Fatalf("expected the active job to survive, got %#v", remaining.Jobs)
	}
}

func TestProgressEndpointRequiresOrg(t *testing.T) {
	d, _, _ := startTestDaemon(t)

	resp, err := http.Get(apiURL(d, "/api/progress"))
	if err != nil {
		t.Fatalf("GET /api/progress: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %s", resp.Status)
	}
}

func TestProgressEndpointReturnsSnapshots(t *testing.T) {
	d, _, store := startTestDaemon(t)

	job := testsupport.NewJob(t, store, "org-7", "media/polling.mp4")

	var payload struct {
		Jobs []queue.ProgressSnapshot `json:"jobs"`
	}
	getJSON(t, apiURL(d, "/api/progress?org=org-7"), &payload)
	if len(payload.Jobs) != 1 || payload.Jobs[0].ID != job.ID {
		t.Fatalf("unexpected snapshots %#v", payload.Jobs)
	}
}

func TestStuckEndpointsReportCounts(t *testing.T) {
	d, _, store := startTestDaemon(t, testsupport.WithStuckThresholds(1, 1))

	job := testsupport.NewJob(t, store, "org-1", "media/limbo.mp4")
	ctx := context.Background()
	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	resp, err := http.Post(apiURL(d, "/api/stuck/retry"), "application/json", nil)
	if err != nil {
		t.Fatalf("POST stuck/retry: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %s", resp.Status)
	}
	var result api.ReconcileResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Threshold is one minute; a fresh claim is not stuck yet.
	if result.Examined != 0 || result.Requeued != 0 {
		t.Fatalf("expected nothing stuck, got %+v", result)
	}
}

func TestSecondDaemonInstanceIsRejected(t *testing.T) {
	d, cfg, store := startTestDaemon(t)
	_ = d

	logger := logging.NewNop()
	second, err := daemon.New(cfg, daemon.Deps{
		Store:      store,
		Dispatcher: dispatch.New(cfg, store, passAnalyzer{}, identityResolver{}, logger),
		Reporter:   progress.New(cfg, store, logger),
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second daemon start to fail on the lock")
	}
}

func TestBearerAuthGuardsEndpoints(t *testing.T) {
	d, _, _ := startTestDaemon(t, func(cfg *config.Config) {
		cfg.Paths.APIToken = "hunter2"
	})

	resp, err := http.Get(apiURL(d, "/api/status"))
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		resp.Body.Close()
		t.Fatalf("expected 401 without token, got %s", resp.Status)
	}
	var denied struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&denied); err != nil {
		resp.Body.Close()
		t.Fatalf("decode 401 body: %v", err)
	}
	resp.Body.Close()
	if denied.Error != "unauthorized" {
		t.Fatalf("expected JSON error body, got %#v", denied)
	}

	req, err := http.NewRequest(http.MethodGet, apiURL(d, "/api/status"), nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer hunter2")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized GET: %v", err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %s", authed.Status)
	}
}

func TestJobsListFiltersByStatus(t *testing.T) {
	d, _, store := startTestDaemon(t)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "org-1", "media/filter.mp4")
	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if _, err := store.Fail(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	var failed api.JobListResponse
	getJSON(t, apiURL(d, "/api/jobs?status=failed"), &failed)
	if len(failed.Jobs) != 1 || failed.Jobs[0].ID != job.ID {
		t.Fatalf("expected the failed job, got %#v", failed.Jobs)
	}

	var completed api.JobListResponse
	getJSON(t, apiURL(d, "/api/jobs?status=completed"), &completed)
	if len(completed.Jobs) != 0 {
		t.Fatalf("expected no completed jobs, got %#v", completed.Jobs)
	}
}
