package handlers

import (
	"context"
	"net/http"

	"github.com/geobim/geobim/internal/logger"
)

// DBPinger verifies database connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// WorkerProber verifies that the background worker fleet is processing tasks.
type WorkerProber interface {
	HealthCheck(ctx context.Context) bool
}

// HealthHandler serves the liveness probes. Responses are deliberately
// non-disclosing: no versions, no connection strings, no SQL detail.
type HealthHandler struct {
	db     DBPinger
	worker WorkerProber
}

// NewHealthHandler creates the health handler. worker may be nil, in which
// case the worker probe reports unavailable.
func NewHealthHandler(db DBPinger, worker WorkerProber) *HealthHandler {
	return &HealthHandler{db: db, worker: worker}
}

// Liveness handles GET /health with a database round trip.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		logger.Warn("health check failed", logger.KeyError, err)
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Worker handles GET /health/worker by dispatching a probe task and polling
// for its completion (bounded to 5s).
func (h *HealthHandler) Worker(w http.ResponseWriter, r *http.Request) {
	if h.worker == nil || !h.worker.HealthCheck(r.Context()) {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
