package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mediaqc/internal/config"
	"mediaqc/internal/logging"
	"mediaqc/internal/queue"
)

// Result reports what one reconciliation operation did.
type Result struct {
	Examined  int `json:"examined"`
	Requeued  int `json:"requeued"`
	Cancelled int `json:"cancelled"`
}

// Reconciler scans for stuck jobs and puts them back on a useful path.
type Reconciler struct {
	cfg    *config.Config
	store  *queue.Store
	notify func()
	logger *slog.Logger
}

// New constructs a reconciler. notify is invoked after any successful
// requeue to request a dispatch pass; nil disables the nudge.
func New(cfg *config.Config, store *queue.Store, notify func(), logger *slog.Logger) *Reconciler {
	if notify == nil {
		notify = func() {}
	}
	return &Reconciler{
		cfg:    cfg,
		store:  store,
		notify: notify,
		logger: logging.NewComponentLogger(logger, "reconciler"),
	}
}

func (r *Reconciler) cutoffs(now time.Time) (queuedBefore, runningBefore time.Time) {
	queuedBefore = now.Add(-time.Duration(r.cfg.Queue.QueuedStuckMinutes) * time.Minute)
	runningBefore = now.Add(-time.Duration(r.cfg.Queue.RunningStuckMinutes) * time.Minute)
	return queuedBefore, runningBefore
}

func (r *Reconciler) findStuck(ctx context.Context) ([]*queue.Job, error) {
	queuedBefore, runningBefore := r.cutoffs(time.Now().UTC())

	running, err := r.store.StuckRunning(ctx, runningBefore)
	if err != nil {
		return nil, fmt.Errorf("scan stuck running: %w", err)
	}
	queued, err := r.store.StuckQueued(ctx, queuedBefore)
	if err != nil {
		return nil, fmt.Errorf("scan stuck queued: %w", err)
	}
	return append(running, queued...), nil
}

// RetryStuck requeues every job that exceeded its stuck threshold.
func (r *Reconciler) RetryStuck(ctx context.Context) (Result, error) {
	stuck, err := r.findStuck(ctx)
	if err != nil {
		return Result{}, err
	}
	result := Result{Examined: len(stuck)}
	if len(stuck) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(stuck))
	for _, job := range stuck {
		ids = append(ids, job.ID)
	}
	requeued, err := r.store.Requeue(ctx, ids...)
	if err != nil {
		return result, fmt.Errorf("requeue stuck jobs: %w", err)
	}
	result.Requeued = int(requeued)

	if result.Requeued > 0 {
		r.logger.Info("stuck jobs requeued",
			logging.Int("examined", result.Examined),
			logging.Int("requeued", result.Requeued),
		)
		r.notify()
	}
	return result, nil
}

// CancelStuck cancels every job that exceeded its stuck threshold instead of
// giving it another attempt.
func (r *Reconciler) CancelStuck(ctx context.Context) (Result, error) {
	stuck, err := r.findStuck(ctx)
	if err != nil {
		return Result{}, err
	}
	result := Result{Examined: len(stuck)}

	for _, job := range stuck {
		cancelled, err := r.store.Cancel(ctx, job.ID, "cancelled by stuck-job reconciliation")
		if err != nil {
			return result, fmt.Errorf("cancel stuck job %s: %w", job.ID, err)
		}
		if cancelled {
			result.Cancelled++
		}
	}
	if result.Cancelled > 0 {
		r.logger.Info("stuck jobs cancelled",
			logging.Int("examined", result.Examined),
			logging.Int("cancelled", result.Cancelled),
		)
	}
	return result, nil
}

// RetrySpecific requeues the named jobs regardless of age. Jobs not in a
// requeueable state are left untouched and simply not counted.
func (r *Reconciler) RetrySpecific(ctx context.Context, ids ...string) (Result, error) {
	result := Result{Examined: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}

	requeued, err := r.store.Requeue(ctx, ids...)
	if err != nil {
		return result, fmt.Errorf("requeue jobs: %w", err)
	}
	result.Requeued = int(requeued)
	if result.Requeued > 0 {
		r.logger.Info("jobs requeued by operator",
			logging.Int("requested", result.Examined),
			logging.Int("requeued", result.Requeued),
		)
		r.notify()
	}
	return result, nil
}

// Sweep is the standing scheduler entry point: one threshold-based retry
// pass, with errors logged rather than escalated.
func (r *Reconciler) Sweep(ctx context.Context) error {
	_, err := r.RetryStuck(ctx)
	if err != nil {
		r.logger.Error("reconcile sweep failed", logging.Error(err))
	}
	return err
}
