package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"mediaqc/internal/analysis"
	"mediaqc/internal/config"
	"mediaqc/internal/daemon"
	"mediaqc/internal/dispatch"
	"mediaqc/internal/logging"
	"mediaqc/internal/progress"
	"mediaqc/internal/queue"
	"mediaqc/internal/source"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	deps := daemon.Deps{
		Store: store,
		Dispatcher: dispatch.New(
			cfg,
			store,
			analysis.NewFFprobeAnalyzer(cfg.FFprobeBinary()),
			newResolver(cfg),
			logger,
		),
		Reporter: progress.New(cfg, store, logger),
	}

	d, err := daemon.New(cfg, deps, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("mediaqcd shutting down")
}

func newResolver(cfg *config.Config) source.Resolver {
	timeout := cfg.Analyzer.DownloadTimeoutSeconds
	if timeout <= 0 {
		timeout = 300
	}
	return source.NewFileResolver(
		cfg.Paths.UploadDir,
		cfg.Paths.StagingDir,
		source.TokenFromEnv("MEDIAQC_DRIVE_TOKEN"),
		time.Duration(timeout)*time.Second,
	)
}
