package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/modelgate/modelgate/pkg/api"
)

const healthTimeout = 2 * time.Second

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.store.HealthCheck(ctx); err != nil {
		api.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
		})
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
