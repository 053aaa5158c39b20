package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hilthontt/codeclash/internal/infrastructure/json"
)

var startTime = time.Now()

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type Handler struct {
	healthy atomic.Bool
	checks  map[string]Check
}

func NewHandler(checks map[string]Check) *Handler {
	h := &Handler{checks: checks}
	h.healthy.Store(true)
	return h
}

// MarkUnhealthy makes every health check fail. It is called once shutdown begins so
// load balancers stop routing new sockets here.
func (h *Handler) MarkUnhealthy() {
	h.healthy.Store(false)
}

func (h *Handler) response(status string) healthResponse {
	return healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
}

// GetHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API, including uptime and current timestamp
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "Service is healthy"
// @Failure      503 {object} healthResponse "Service is unhealthy"
// @Router       /health [get]
// @Router       /healthz [get]
// @Router       /live [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if !h.healthy.Load() {
		json.WriteJSON(w, http.StatusServiceUnavailable, h.response("unhealthy"))
		return
	}

	json.WriteJSON(w, http.StatusOK, h.response("ok"))
}

// GetReady godoc
// @Summary      Readiness check
// @Description  Pings every configured dependency and reports the ones that failed
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "Service is ready"
// @Failure      503 {object} healthResponse "A dependency is unavailable"
// @Router       /ready [get]
func (h *Handler) GetReady(w http.ResponseWriter, r *http.Request) {
	if !h.healthy.Load() {
		json.WriteJSON(w, http.StatusServiceUnavailable, h.response("unhealthy"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := h.response("ok")
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			if resp.Failing == nil {
				resp.Failing = map[string]string{}
			}
			resp.Failing[name] = err.Error()
		}
	}

	if len(resp.Failing) > 0 {
		resp.Status = "unhealthy"
		json.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	json.WriteJSON(w, http.StatusOK, resp)
}
