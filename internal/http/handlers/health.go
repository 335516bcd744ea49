package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// HealthCheck is one dependency probe, e.g. a Redis or Postgres ping.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports ok when every registered probe passes.
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Get handles GET /health.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := map[string]string{"status": "ok"}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp[name] = "down"
			resp["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp[name] = "ok"
	}
	writeJSON(w, status, resp)
}
