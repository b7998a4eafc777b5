package daemon

import (
	"context"
	"log/slog"
	"time"

	"mediaqc/internal/config"
	"mediaqc/internal/dispatch"
	"mediaqc/internal/logging"
	"mediaqc/internal/reconcile"
)

// scheduler owns queue liveness. Dispatch and reconciliation run on their
// own tickers, so jobs make progress with zero inbound traffic; explicit
// triggers land on the kick channel and coalesce while a pass is in flight.
type scheduler struct {
	cfg        *config.Config
	dispatcher *dispatch.Dispatcher
	reconciler *reconcile.Reconciler
	logger     *slog.Logger

	kick chan struct{}
}

func newScheduler(cfg *config.Config, dispatcher *dispatch.Dispatcher, reconciler *reconcile.Reconciler, logger *slog.Logger) *scheduler {
	return &scheduler{
		cfg:        cfg,
		dispatcher: dispatcher,
		reconciler: reconciler,
		logger:     logging.NewComponentLogger(logger, "scheduler"),
		kick:       make(chan struct{}, 1),
	}
}

// RequestDispatch asks for a dispatch pass without blocking. Requests made
// while a pass is pending collapse into the one already queued.
func (s *scheduler) RequestDispatch() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *scheduler) interval(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

func (s *scheduler) run(ctx context.Context) {
	dispatchEvery := s.interval(s.cfg.Workflow.DispatchInterval, 5)
	reconcileEvery := s.interval(s.cfg.Workflow.ReconcileInterval, 60)
	errorRetry := s.interval(s.cfg.Workflow.ErrorRetryInterval, 10)

	dispatchTicker := time.NewTicker(dispatchEvery)
	defer dispatchTicker.Stop()
	reconcileTicker := time.NewTicker(reconcileEvery)
	defer reconcileTicker.Stop()

	s.logger.Info("scheduler started",
		logging.Duration("dispatch_interval", dispatchEvery),
		logging.Duration("reconcile_interval", reconcileEvery),
	)

	// Drain anything left queued before the daemon went down.
	s.runDispatch(ctx, dispatchTicker, dispatchEvery, errorRetry)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-s.kick:
			s.runDispatch(ctx, dispatchTicker, dispatchEvery, errorRetry)
		case <-dispatchTicker.C:
			s.runDispatch(ctx, dispatchTicker, dispatchEvery, errorRetry)
		case <-reconcileTicker.C:
			if err := s.reconciler.Sweep(ctx); err != nil {
				reconcileTicker.Reset(errorRetry)
			} else {
				reconcileTicker.Reset(reconcileEvery)
			}
		}
	}
}

func (s *scheduler) runDispatch(ctx context.Context, ticker *time.Ticker, normal, errorRetry time.Duration) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.dispatcher.Dispatch(ctx); err != nil {
		s.logger.Error("dispatch pass failed", logging.Error(err))
		ticker.Reset(errorRetry)
		return
	}
	ticker.Reset(normal)
}
