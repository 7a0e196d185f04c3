package rest

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// CheckFunc checks one dependency for readiness.
type CheckFunc func(ctx context.Context) error

// HealthHandler provides HTTP health check endpoints for the prediction service.
type HealthHandler struct {
	logger        *slog.Logger
	checks        map[string]CheckFunc
	startTime     time.Time
	service       string
	artifactSetID string
}

// NewHealthHandler creates a new health check handler. The service is only
// constructed after the artifact set has loaded, so it is ready unless an
// added dependency check fails.
func NewHealthHandler(service, artifactSetID string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		logger:        logger,
		checks:        make(map[string]CheckFunc),
		startTime:     time.Now(),
		service:       service,
		artifactSetID: artifactSetID,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the JSON response for readiness checks.
type ReadinessResponse struct {
	Checks        map[string]string `json:"checks"`
	Status        string            `json:"status"`
	Service       string            `json:"service"`
	ArtifactSetID string            `json:"artifact_set_id"`
}

// AddCheck registers a readiness check.
func (h *HealthHandler) AddCheck(name string, check CheckFunc) {
	h.checks[name] = check
}

// RegisterRoutes registers health endpoints on the provided ServeMux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz handles liveness check requests.
func (h *HealthHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.service,
		Uptime:  time.Since(h.startTime).String(),
	}, h.logger)
}

// Readyz handles readiness check requests.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadinessResponse{
		Status:        "ready",
		Service:       h.service,
		ArtifactSetID: h.artifactSetID,
		Checks:        map[string]string{"artifacts": "ok"},
	}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WarnContext(ctx, "readiness check failed",
				slog.String("check", name),
				slog.String("error", err.Error()),
			)
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp, h.logger)
}
