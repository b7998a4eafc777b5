package source_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediaqc/internal/queue"
	"mediaqc/internal/source"
	"mediaqc/internal/testsupport"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func newResolver(t *testing.T) (*source.FileResolver, string, string) {
	t.Helper()
	base := t.TempDir()
	uploadDir := filepath.Join(base, "uploads")
	stagingDir := filepath.Join(base, "staging")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		t.Fatalf("mkdir uploads: %v", err)
	}
	resolver := source.NewFileResolver(uploadDir, stagingDir, staticToken("sekrit"), 5*time.Second)
	return resolver, uploadDir, stagingDir
}

func TestResolveUploadRelativePath(t *testing.T) {
	resolver, uploadDir, _ := newResolver(t)
	testsupport.WriteFile(t, filepath.Join(uploadDir, "org-1", "video.mp4"), 64)

	job := &queue.Job{
		ID:         "job-1",
		SourceType: queue.SourceUpload,
		SourcePath: "org-1/video.mp4",
		FileName:   "video.mp4",
	}
	ref, cleanup, err := resolver.Resolve(context.Background(), job)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	defer cleanup()

	if ref.Path != filepath.Join(uploadDir, "org-1", "video.mp4") {
		t.Fatalf("unexpected resolved path %s", ref.Path)
	}
	if ref.FileName != "video.mp4" {
		t.Fatalf("unexpected file name %s", ref.FileName)
	}
}

func TestResolveUploadRejectsTraversal(t *testing.T) {
	resolver, _, _ := newResolver(t)

	job := &queue.Job{
		ID:         "job-1",
		SourceType: queue.SourceUpload,
		SourcePath: "../../etc/passwd",
	}
	if _, _, err := resolver.Resolve(context.Background(), job); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestResolveUploadMissingFile(t *testing.T) {
	resolver, _, _ := newResolver(t)

	job := &queue.Job{
		ID:         "job-1",
		SourceType: queue.SourceUpload,
		SourcePath: "org-1/missing.mp4",
	}
	if _, _, err := resolver.Resolve(context.Background(), job); err == nil {
		t.Fatal("expected missing upload to error")
	}
}

func TestResolveDriveLinkStagesDownload(t *testing.T) {
	resolver, _, stagingDir := newResolver(t)

	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("fake media bytes"))
	}))
	defer server.Close()

	job := &queue.Job{
		ID:         "job-2",
		SourceType: queue.SourceDriveLink,
		SourcePath: server.URL + "/files/abc",
		FileName:   "delivery.mov",
	}
	ref, cleanup, err := resolver.Resolve(context.Background(), job)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if gotAuth != "Bearer sekrit" {
		t.Fatalf("expected bearer credential, got %q", gotAuth)
	}
	if !strings.HasPrefix(ref.Path, stagingDir) {
		t.Fatalf("expected staged file under %s, got %s", stagingDir, ref.Path)
	}
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(data) != "fake media bytes" {
		t.Fatalf("unexpected staged bytes %q", data)
	}

	cleanup()
	if _, err := os.Stat(ref.Path); !os.IsNotExist(err) {
		t.Fatalf("expected cleanup to remove staged file, err=%v", err)
	}
}

func TestResolveDriveLinkNonOKStatus(t *testing.T) {
	resolver, _, _ := newResolver(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	job := &queue.Job{
		ID:         "job-3",
		SourceType: queue.SourceDriveLink,
		SourcePath: server.URL + "/files/gone",
	}
	if _, _, err := resolver.Resolve(context.Background(), job); err == nil {
		t.Fatal("expected non-200 download to error")
	}
}

func TestResolveUnknownSourceType(t *testing.T) {
	resolver, _, _ := newResolver(t)

	job := &queue.Job{ID: "job-4", SourceType: "carrier_pigeon", SourcePath: "x"}
	if _, _, err := resolver.Resolve(context.Background(), job); err == nil {
		t.Fatal("expected unknown source type to error")
	}
}
