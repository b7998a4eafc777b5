package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"mediaqc/internal/api"
	"mediaqc/internal/config"
	"mediaqc/internal/logging"
	"mediaqc/internal/queue"
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:     bind,
		logger:   logger,
		daemon:   d,
		queueSvc: api.NewQueueService(d.store),
	}

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return srv.requireBearer(cfg.Paths.APIToken, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", auth(srv.handleStatus))
	mux.HandleFunc("/api/jobs", auth(srv.handleJobs))
	mux.HandleFunc("/api/jobs/", auth(srv.handleJob))
	mux.HandleFunc("/api/progress", auth(srv.handleProgress))
	mux.HandleFunc("/api/progress/stream", auth(srv.handleProgressStream))
	mux.HandleFunc("/api/dispatch", auth(srv.handleDispatch))
	mux.HandleFunc("/api/stuck/retry", auth(srv.handleStuckRetry))
	mux.HandleFunc("/api/stuck/cancel", auth(srv.handleStuckCancel))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listJobs(w, r)
	case http.MethodPost:
		s.submitJob(w, r)
	case http.MethodDelete:
		s.clearJobs(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// clearJobs removes finished rows, or the whole queue with ?all=true.
func (s *apiServer) clearJobs(w http.ResponseWriter, r *http.Request) {
	all := false
	if raw := r.URL.Query().Get("all"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid all parameter %q", raw))
			return
		}
		all = parsed
	}
	removed, err := s.queueSvc.Clear(r.Context(), all)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ClearResponse{Removed: removed})
}

func (s *apiServer) listJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var statuses []queue.Status
	for _, value := range query["status"] {
		status, ok := queue.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", value))
			return
		}
		statuses = append(statuses, status)
		// Pending rows satisfy a queued filter.
		if status == queue.StatusQueued {
			statuses = append(statuses, queue.StatusPending)
		}
	}

	orgID := strings.TrimSpace(query.Get("org"))
	olderThan := strings.TrimSpace(query.Get("older_than_minutes"))

	var (
		jobs []api.JobView
		err  error
	)
	switch {
	case olderThan != "":
		if orgID == "" {
			s.writeError(w, http.StatusBadRequest, "older_than_minutes requires org")
			return
		}
		minutes, convErr := strconv.Atoi(olderThan)
		if convErr != nil || minutes < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid older_than_minutes %q", olderThan))
			return
		}
		cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)
		jobs, err = s.queueSvc.ListByOrgOlderThan(r.Context(), orgID, statuses, cutoff)
	case orgID != "":
		jobs, err = s.queueSvc.ListByOrg(r.Context(), orgID, statuses, 0)
	default:
		jobs, err = s.queueSvc.List(r.Context(), statuses...)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) submitJob(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := s.queueSvc.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, api.ErrInvalidSubmission) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.daemon.scheduler.RequestDispatch()
	s.writeJSON(w, http.StatusCreated, api.JobResponse{Job: *job})
}

// handleJob serves /api/jobs/{id} and the per-job actions
// /api/jobs/{id}/cancel and /api/jobs/{id}/retry.
func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" || strings.Contains(action, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		job, err := s.queueSvc.Describe(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if job == nil {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
	case "cancel":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.cancelJob(w, r, id)
	case "retry":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		result, err := s.daemon.reconciler.RetrySpecific(r.Context(), id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.ReconcileResponse{
			Examined: result.Examined,
			Requeued: result.Requeued,
		})
	default:
		s.writeError(w, http.StatusNotFound, "job not found")
	}
}

func (s *apiServer) cancelJob(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	job, err := s.queueSvc.Cancel(r.Context(), id, body.Reason)
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	orgID, ids, err := progressQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snapshots, err := s.daemon.reporter.Snapshot(r.Context(), orgID, ids)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]queue.ProgressSnapshot{"jobs": snapshots})
}

func (s *apiServer) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result, err := s.daemon.dispatcher.Dispatch(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.DispatchResponse{
		Processed: result.Processed,
		Errors:    result.Errors,
	})
}

func (s *apiServer) handleStuckRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result, err := s.daemon.reconciler.RetryStuck(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ReconcileResponse{
		Examined: result.Examined,
		Requeued: result.Requeued,
	})
}

func (s *apiServer) handleStuckCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	result, err := s.daemon.reconciler.CancelStuck(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ReconcileResponse{
		Examined:  result.Examined,
		Cancelled: result.Cancelled,
	})
}

func progressQuery(r *http.Request) (orgID string, ids []string, err error) {
	query := r.URL.Query()
	orgID = strings.TrimSpace(query.Get("org"))
	for _, raw := range query["id"] {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	if orgID == "" {
		return "", nil, errors.New("org query parameter required")
	}
	return orgID, ids, nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
