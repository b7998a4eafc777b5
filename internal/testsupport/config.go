package testsupport

import (
	"path/filepath"
	"testing"

	"mediaqc/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithStuckThresholds overrides the stuck-job thresholds in minutes.
func WithStuckThresholds(queued, running int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.QueuedStuckMinutes = queued
		cfg.Queue.RunningStuckMinutes = running
	}
}

// WithMaxConcurrent overrides the dispatch concurrency cap.
func WithMaxConcurrent(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.MaxConcurrent = n
	}
}
