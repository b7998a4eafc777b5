package daemon

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mediaqc/internal/logging"
)

const progressStreamInterval = 2 * time.Second

var progressUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Poll clients run on other origins; bearer auth already gates access.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleProgressStream pushes progress snapshots over a websocket until the
// client disconnects or the daemon shuts down.
func (s *apiServer) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	orgID, ids, err := progressQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := progressUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Warn("progress stream upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	// Reads only surface client close; discard payloads.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(progressStreamInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		snapshots, err := s.daemon.reporter.Snapshot(ctx, orgID, ids)
		if err != nil {
			s.log().Warn("progress stream snapshot failed", logging.Error(err))
			return
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(map[string]any{"jobs": snapshots}); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon stopping"))
			return
		case <-ticker.C:
		}
	}
}
