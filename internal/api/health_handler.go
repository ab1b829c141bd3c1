package api

import (
	"context"
	"net/http"
	"time"

	"github.com/phrazzld/taskboard-api/internal/api/shared"
)

// healthCheckTimeout bounds each dependency probe during readiness checks.
const healthCheckTimeout = 2 * time.Second

// Pinger verifies connectivity to a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

// Ping implements the Pinger interface.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	dependencies map[string]Pinger
}

// NewHealthHandler creates a HealthHandler probing the named dependencies.
func NewHealthHandler(dependencies map[string]Pinger) *HealthHandler {
	return &HealthHandler{dependencies: dependencies}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Liveness handles GET /health/liveness. The process is alive if it can
// answer at all.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/readiness. It probes every dependency and
// reports per-dependency status; any failure yields 503.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.dependencies))

	for name, dep := range h.dependencies {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = "unavailable: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ready"
	if status != http.StatusOK {
		overall = "not_ready"
	}

	shared.RespondWithJSON(w, r, status, map[string]any{
		"status": overall,
		"checks": checks,
	})
}
