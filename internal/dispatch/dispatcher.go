package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"mediaqc/internal/analysis"
	"mediaqc/internal/config"
	"mediaqc/internal/logging"
	"mediaqc/internal/queue"
	"mediaqc/internal/source"
)

// BatchResult aggregates the outcome of one dispatch pass.
type BatchResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// Dispatcher selects and advances queued jobs.
type Dispatcher struct {
	cfg    *config.Config
	store  *queue.Store
	worker *Worker
	logger *slog.Logger

	mu sync.Mutex // coalesces overlapping Dispatch calls
}

// New constructs a dispatcher wired to the store, analyzer, and resolver.
func New(cfg *config.Config, store *queue.Store, analyzer analysis.Analyzer, resolver source.Resolver, logger *slog.Logger) *Dispatcher {
	logger = logging.NewComponentLogger(logger, "dispatcher")
	return &Dispatcher{
		cfg:    cfg,
		store:  store,
		worker: NewWorker(cfg, store, analyzer, resolver, logger),
		logger: logger,
	}
}

// Dispatch is the consolidated entry point used by every trigger surface.
// Overlapping calls coalesce: when a pass is already in flight the call
// returns immediately and the in-flight pass covers the trigger.
func (d *Dispatcher) Dispatch(ctx context.Context) (BatchResult, error) {
	if !d.mu.TryLock() {
		d.logger.Debug("dispatch already in flight, trigger coalesced")
		return BatchResult{}, nil
	}
	defer d.mu.Unlock()
	return d.processBatch(ctx, d.cfg.Queue.MaxConcurrent)
}

// ProcessBatch claims and works up to maxConcurrent queued jobs, oldest
// first. One job's failure never aborts the batch; only store connectivity
// errors propagate.
func (d *Dispatcher) ProcessBatch(ctx context.Context, maxConcurrent int) (BatchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.processBatch(ctx, maxConcurrent)
}

func (d *Dispatcher) processBatch(ctx context.Context, maxConcurrent int) (BatchResult, error) {
	var result BatchResult

	candidates, err := d.store.SelectQueued(ctx, maxConcurrent)
	if err != nil {
		return result, err
	}

	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		claimed, err := d.store.Claim(ctx, candidate.ID)
		if err != nil {
			return result, err
		}
		if !claimed {
			// Another dispatcher won the claim, or the job was cancelled
			// between selection and claim.
			continue
		}

		outcome, err := d.worker.Run(ctx, candidate.ID)
		if err != nil {
			return result, err
		}
		switch outcome {
		case OutcomeCompleted:
			result.Processed++
		case OutcomeFailed:
			result.Errors++
		}
	}

	if result.Processed > 0 || result.Errors > 0 {
		d.logger.Info("dispatch pass finished",
			logging.Int("processed", result.Processed),
			logging.Int("errors", result.Errors),
		)
	}
	return result, nil
}

// ProcessNext claims and works a single queued job, for lightweight
// polling-triggered invocation. It returns the job's final row, or nil when
// nothing was claimable.
func (d *Dispatcher) ProcessNext(ctx context.Context) (*queue.Job, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	candidates, err := d.store.SelectQueued(ctx, 1)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		claimed, err := d.store.Claim(ctx, candidate.ID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}
		if _, err := d.worker.Run(ctx, candidate.ID); err != nil {
			return nil, err
		}
		return d.store.GetByID(ctx, candidate.ID)
	}
	return nil, nil
}
