package http

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/fluentmind/pkg/response"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles service info and health check endpoints.
type HealthHandler struct {
	log         zerolog.Logger
	service     string
	version     string
	environment string
	store       Pinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(log zerolog.Logger, version, environment string, store Pinger) *HealthHandler {
	return &HealthHandler{
		log:         log,
		service:     "fluentmind",
		version:     version,
		environment: environment,
		store:       store,
	}
}

// Root handles GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"service":     h.service,
		"version":     h.version,
		"environment": h.environment,
	})
}

// Health checks if the service is healthy.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"environment": h.environment,
	})
}

// Ready checks if the service is ready to receive traffic.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("readiness check failed")
			response.Error(w, http.StatusServiceUnavailable, &response.ErrorBody{
				Code:    "NOT_READY",
				Message: "database unavailable",
			})
			return
		}
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
	})
}

// Live checks if the service is alive (for Kubernetes liveness probe).
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
	})
}
