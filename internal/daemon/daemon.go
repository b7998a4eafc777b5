package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"mediaqc/internal/api"
	"mediaqc/internal/config"
	"mediaqc/internal/dispatch"
	"mediaqc/internal/logging"
	"mediaqc/internal/progress"
	"mediaqc/internal/queue"
	"mediaqc/internal/reconcile"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	dispatcher *dispatch.Dispatcher
	reconciler *reconcile.Reconciler
	reporter   *progress.Reporter
	scheduler  *scheduler
	apiServer  *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Deps bundles the collaborators a daemon is built from.
type Deps struct {
	Store      *queue.Store
	Dispatcher *dispatch.Dispatcher
	Reporter   *progress.Reporter
}

// New constructs a daemon with initialized dependencies. The reconciler is
// built here so its requeue nudge lands on the daemon's scheduler.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Dispatcher == nil || deps.Reporter == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, dispatcher, reporter, and logger")
	}

	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		reporter:   deps.Reporter,
		lockPath:   filepath.Join(cfg.Paths.LogDir, "mediaqcd.lock"),
	}
	d.lock = flock.New(d.lockPath)
	d.reconciler = reconcile.New(cfg, d.store, func() { d.scheduler.RequestDispatch() }, logger)
	d.scheduler = newScheduler(cfg, d.dispatcher, d.reconciler, logger)

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiServer = server
	return d, nil
}

// Start acquires the daemon lock and launches the scheduler and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mediaqc daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.apiServer != nil {
		if err := d.apiServer.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}
	go d.scheduler.run(d.ctx)

	d.running.Store(true)
	d.logger.Info("mediaqc daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.apiServer != nil {
		d.apiServer.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("mediaqc daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether background processing is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr returns the bound API listener address, or empty before Start or
// when the API is disabled.
func (d *Daemon) APIAddr() string {
	if d.apiServer == nil || d.apiServer.listener == nil {
		return ""
	}
	return d.apiServer.listener.Addr().String()
}

// Status aggregates daemon runtime information.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("queue stats unavailable", logging.Error(err))
	} else {
		status.QueueStats = api.MergeQueueStats(stats)
	}
	health, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("queue health unavailable", logging.Error(err))
	} else {
		status.Health = api.FromHealth(health)
	}
	return status
}
