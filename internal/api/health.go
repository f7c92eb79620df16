package api

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether the database is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Backlog reports dispatcher work admitted but not yet started.
type Backlog interface {
	Queued() int
}

// HealthResponse is the body of a successful health check.
type HealthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	QueuedTasks int    `json:"queued_tasks"`
}

const pingTimeout = 2 * time.Second

type healthHandler struct {
	db      Pinger
	backlog Backlog
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "database unreachable", err)
		return
	}

	resp := HealthResponse{Status: "ok", Database: "ok"}
	if h.backlog != nil {
		resp.QueuedTasks = h.backlog.Queued()
	}
	respondJSON(w, r, http.StatusOK, resp)
}
