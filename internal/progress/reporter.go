package progress

import (
	"context"
	"log/slog"

	"mediaqc/internal/config"
	"mediaqc/internal/logging"
	"mediaqc/internal/queue"
)

// Reporter answers progress polls against the job store.
type Reporter struct {
	store    *queue.Store
	pageSize int
	logger   *slog.Logger
}

// New constructs a reporter using the configured page cap.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Reporter {
	pageSize := cfg.Queue.ProgressPageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Reporter{
		store:    store,
		pageSize: pageSize,
		logger:   logging.NewComponentLogger(logger, "progress"),
	}
}

// Snapshot returns progress rows for an organization. With explicit ids the
// result covers exactly those jobs in any state, uncapped since the caller
// already bounds the request; without ids it covers the organization's
// active jobs, most recently updated first, capped at the configured page
// size.
func (r *Reporter) Snapshot(ctx context.Context, orgID string, ids []string) ([]queue.ProgressSnapshot, error) {
	if len(ids) > 0 {
		return r.store.Progress(ctx, orgID, ids, 0)
	}
	return r.store.Progress(ctx, orgID, nil, r.pageSize)
}
