package testsupport

import (
	"context"
	"testing"

	"mediaqc/internal/config"
	"mediaqc/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a queued upload job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, orgID, sourcePath string) *queue.Job {
	t.Helper()

	job, err := store.CreateJob(context.Background(), queue.NewJobParams{
		OrgID:      orgID,
		ProjectID:  "project-1",
		SourceType: queue.SourceUpload,
		SourcePath: sourcePath,
		QCType:     queue.QCBasic,
	})
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}
