package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediaqc/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to be reported")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	defaults := config.Default()
	if cfg.Queue.MaxConcurrent != defaults.Queue.MaxConcurrent {
		t.Fatalf("expected default max_concurrent, got %d", cfg.Queue.MaxConcurrent)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %#v", cfg.Logging)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mediaqc.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
api_bind = "127.0.0.1:9900"
api_token = "secret"

[queue]
max_concurrent = 7
queued_stuck_minutes = 5

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Queue.MaxConcurrent != 7 || cfg.Queue.QueuedStuckMinutes != 5 {
		t.Fatalf("unexpected queue config: %#v", cfg.Queue)
	}
	if cfg.Paths.APIBind != "127.0.0.1:9900" || cfg.Paths.APIToken != "secret" {
		t.Fatalf("unexpected paths config: %#v", cfg.Paths)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %#v", cfg.Logging)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected absolute data dir, got %s", cfg.Paths.DataDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "zero concurrency",
			content: "[queue]\nmax_concurrent = 0\n",
			want:    "queue.max_concurrent",
		},
		{
			name:    "bad log format",
			content: "[logging]\nformat = \"yaml\"\n",
			want:    "logging.format",
		},
		{
			name:    "full timeout below basic",
			content: "[analyzer]\nbasic_timeout_seconds = 120\nfull_timeout_seconds = 60\n",
			want:    "full_timeout_seconds",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "_")+".toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestExpandPathResolvesHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	expanded, err := config.ExpandPath("~/qc/data")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if expanded != filepath.Join(home, "qc", "data") {
		t.Fatalf("unexpected expansion %s", expanded)
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "mediaqc.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectoriesCreatesRequiredPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.StagingDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
}
