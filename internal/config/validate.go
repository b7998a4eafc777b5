package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateAnalyzer(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateQueue() error {
	return ensurePositiveMap(map[string]int{
		"queue.max_concurrent":        c.Queue.MaxConcurrent,
		"queue.queued_stuck_minutes":  c.Queue.QueuedStuckMinutes,
		"queue.running_stuck_minutes": c.Queue.RunningStuckMinutes,
		"queue.progress_page_size":    c.Queue.ProgressPageSize,
	})
}

func (c *Config) validateAnalyzer() error {
	if err := ensurePositiveMap(map[string]int{
		"analyzer.basic_timeout_seconds":    c.Analyzer.BasicTimeoutSeconds,
		"analyzer.full_timeout_seconds":     c.Analyzer.FullTimeoutSeconds,
		"analyzer.download_timeout_seconds": c.Analyzer.DownloadTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Analyzer.FullTimeoutSeconds < c.Analyzer.BasicTimeoutSeconds {
		return errors.New("analyzer.full_timeout_seconds must be >= analyzer.basic_timeout_seconds")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.dispatch_interval":    c.Workflow.DispatchInterval,
		"workflow.reconcile_interval":   c.Workflow.ReconcileInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
