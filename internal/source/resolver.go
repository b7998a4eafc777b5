package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediaqc/internal/analysis"
	"mediaqc/internal/queue"
)

// CredentialSource supplies the bearer token used for drive_link downloads.
// Token refresh and storage live entirely outside this core.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// NoCredentials is a CredentialSource for deployments without linked drives.
type NoCredentials struct{}

func (NoCredentials) Token(context.Context) (string, error) {
	return "", errors.New("no drive credential configured")
}

type envCredentials struct {
	key string
}

func (e envCredentials) Token(context.Context) (string, error) {
	token := strings.TrimSpace(os.Getenv(e.key))
	if token == "" {
		return "", fmt.Errorf("environment variable %s is not set", e.key)
	}
	return token, nil
}

// TokenFromEnv returns a CredentialSource that reads the bearer token from
// the named environment variable on every use.
func TokenFromEnv(key string) CredentialSource {
	return envCredentials{key: key}
}

// Resolver maps a job's source reference to a local file the analyzer can
// read. The returned cleanup releases any staged copy and is always safe to
// call.
type Resolver interface {
	Resolve(ctx context.Context, job *queue.Job) (analysis.SourceRef, func(), error)
}

// FileResolver serves upload paths from the upload root and stages
// drive_link objects into the staging directory.
type FileResolver struct {
	uploadDir   string
	stagingDir  string
	credentials CredentialSource
	client      *http.Client
}

// NewFileResolver constructs a resolver. A nil credentials source disables
// drive_link jobs.
func NewFileResolver(uploadDir, stagingDir string, credentials CredentialSource, timeout time.Duration) *FileResolver {
	if credentials == nil {
		credentials = NoCredentials{}
	}
	return &FileResolver{
		uploadDir:   uploadDir,
		stagingDir:  stagingDir,
		credentials: credentials,
		client:      &http.Client{Timeout: timeout},
	}
}

func noopCleanup() {}

// Resolve implements Resolver.
func (r *FileResolver) Resolve(ctx context.Context, job *queue.Job) (analysis.SourceRef, func(), error) {
	if job == nil {
		return analysis.SourceRef{}, noopCleanup, errors.New("job is nil")
	}
	switch job.SourceType {
	case queue.SourceUpload:
		return r.resolveUpload(job)
	case queue.SourceDriveLink:
		return r.resolveDriveLink(ctx, job)
	default:
		return analysis.SourceRef{}, noopCleanup, fmt.Errorf("unknown source type %q", job.SourceType)
	}
}

func (r *FileResolver) resolveUpload(job *queue.Job) (analysis.SourceRef, func(), error) {
	path := job.SourcePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.uploadDir, path)
	}
	// Reject traversal outside the upload root for relative references.
	if !filepath.IsAbs(job.SourcePath) {
		rel, err := filepath.Rel(r.uploadDir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return analysis.SourceRef{}, noopCleanup, fmt.Errorf("upload path %q escapes upload root", job.SourcePath)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return analysis.SourceRef{}, noopCleanup, fmt.Errorf("upload source: %w", err)
	}
	return analysis.SourceRef{Path: path, FileName: displayName(job)}, noopCleanup, nil
}

func (r *FileResolver) resolveDriveLink(ctx context.Context, job *queue.Job) (analysis.SourceRef, func(), error) {
	token, err := r.credentials.Token(ctx)
	if err != nil {
		return analysis.SourceRef{}, noopCleanup, fmt.Errorf("drive credential: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.SourcePath, nil)
	if err != nil {
		return analysis.SourceRef{}, noopCleanup, fmt.Errorf("build drive request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return analysis.SourceRef{}, noopCleanup, fmt.Errorf("fetch drive source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return analysis.SourceRef{}, noopCleanup, fmt.Errorf("fetch drive source: unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(r.stagingDir, 0o755); err != nil {
		return analysis.SourceRef{}, noopCleanup, fmt.Errorf("ensure staging dir: %w", err)
	}
	staged, err := os.CreateTemp(r.stagingDir, "drive-"+job.ID+"-*")
	if err != nil {
		return analysis.SourceRef{}, noopCleanup, fmt.Errorf("create staging file: %w", err)
	}
	cleanup := func() { _ = os.Remove(staged.Name()) }

	if _, err := io.Copy(staged, resp.Body); err != nil {
		_ = staged.Close()
		cleanup()
		return analysis.SourceRef{}, noopCleanup, fmt.Errorf("stage drive source: %w", err)
	}
	if err := staged.Close(); err != nil {
		cleanup()
		return analysis.SourceRef{}, noopCleanup, fmt.Errorf("close staging file: %w", err)
	}

	return analysis.SourceRef{Path: staged.Name(), FileName: displayName(job)}, cleanup, nil
}

func displayName(job *queue.Job) string {
	if job.FileName != "" {
		return job.FileName
	}
	return filepath.Base(job.SourcePath)
}
