package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker is implemented by components the readiness probe checks.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandlers provides liveness and readiness endpoints.
type HealthHandlers struct {
	localStore HealthChecker
}

// NewHealthHandlers creates health handlers. localStore may be nil.
func NewHealthHandlers(localStore HealthChecker) *HealthHandlers {
	return &HealthHandlers{localStore: localStore}
}

// HealthResponse is the JSON body for both probes.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health handles GET /health (liveness). If the agent can respond, it is
// alive.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Checks:    map[string]string{"runtime": "ok"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready (readiness). Returns 503 when the local
// fallback store is unavailable, since the agent cannot guarantee
// persistence without it.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	if h.localStore != nil {
		if err := h.localStore.HealthCheck(ctx); err != nil {
			checks["local_store"] = "error"
			healthy = false
			slog.WarnContext(ctx, "local store health check failed", "error", err)
		} else {
			checks["local_store"] = "ok"
		}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	WriteJSON(w, statusCode, HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
