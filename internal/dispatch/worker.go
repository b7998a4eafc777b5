package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"mediaqc/internal/analysis"
	"mediaqc/internal/config"
	"mediaqc/internal/logging"
	"mediaqc/internal/queue"
	"mediaqc/internal/source"
)

// Outcome describes where a worked job landed.
type Outcome string

const (
	// OutcomeCompleted means the analysis finished and its report was stored.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed means a job-level error was recorded on the row.
	OutcomeFailed Outcome = "failed"
	// OutcomeDropped means the terminal write lost to a concurrent cancel or
	// requeue; the result was discarded.
	OutcomeDropped Outcome = "dropped"
)

// Worker runs one claimed job through source resolution and analysis to a
// terminal state.
type Worker struct {
	cfg      *config.Config
	store    *queue.Store
	analyzer analysis.Analyzer
	resolver source.Resolver
	logger   *slog.Logger
}

// NewWorker constructs a worker.
func NewWorker(cfg *config.Config, store *queue.Store, analyzer analysis.Analyzer, resolver source.Resolver, logger *slog.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		store:    store,
		analyzer: analyzer,
		resolver: resolver,
		logger:   logging.NewComponentLogger(logger, "worker"),
	}
}

// Run advances an already-claimed running job to a terminal state. Analysis
// failures are recorded on the job row and reported through the outcome;
// only job-store errors are returned.
func (w *Worker) Run(ctx context.Context, jobID string) (Outcome, error) {
	job, err := w.store.GetByID(ctx, jobID)
	if err != nil {
		return OutcomeDropped, err
	}
	logger := w.logger.With(
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldOrgID, job.OrgID),
	)
	logger.Info("job started",
		logging.String("qc_type", string(job.QCType)),
		logging.String("source_type", string(job.SourceType)),
	)

	report, runErr := w.analyze(ctx, job)
	if runErr != nil {
		return w.fail(ctx, logger, job, runErr)
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return w.fail(ctx, logger, job, fmt.Errorf("encode report: %w", err))
	}
	written, err := w.store.Complete(ctx, job.ID, string(payload))
	if err != nil {
		return OutcomeDropped, err
	}
	if !written {
		logger.Info("job result dropped, row left running state first")
		return OutcomeDropped, nil
	}
	logger.Info("job completed", logging.Bool("passed", report.Passed))
	return OutcomeCompleted, nil
}

func (w *Worker) analyze(ctx context.Context, job *queue.Job) (*analysis.Report, error) {
	src, cleanup, err := w.resolver.Resolve(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}
	defer cleanup()

	runCtx, cancel := context.WithTimeout(ctx, w.timeoutFor(job.QCType))
	defer cancel()

	progress := func(percent int) {
		if err := w.store.SetProgress(context.WithoutCancel(ctx), job.ID, percent); err != nil {
			w.logger.Warn("progress update failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err),
			)
		}
	}
	return w.analyzer.Analyze(runCtx, src, job.QCType, progress)
}

func (w *Worker) fail(ctx context.Context, logger *slog.Logger, job *queue.Job, runErr error) (Outcome, error) {
	message := queue.FailureMessage(runErr)
	written, err := w.store.Fail(context.WithoutCancel(ctx), job.ID, message)
	if err != nil {
		return OutcomeDropped, err
	}
	if !written {
		logger.Info("job failure dropped, row left running state first")
		return OutcomeDropped, nil
	}
	logger.Warn("job failed", logging.String("reason", message))
	return OutcomeFailed, nil
}

func (w *Worker) timeoutFor(profile queue.QCType) time.Duration {
	seconds := w.cfg.Analyzer.BasicTimeoutSeconds
	if profile == queue.QCFull {
		seconds = w.cfg.Analyzer.FullTimeoutSeconds
	}
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}
