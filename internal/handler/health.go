package handler

import (
	"net/http"

	"coin-wallet-engine/internal/pkg/response"
)

// Healthz reports liveness, including a database ping.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		response.Error(w, http.StatusServiceUnavailable, "Database unreachable")
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
