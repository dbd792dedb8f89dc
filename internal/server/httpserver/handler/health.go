package handler

import (
	"net/http"
	"time"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		h.handleServiceError(w, r, domain.ErrUnsupported.WithDetails("metrics disabled"))
		return
	}
	h.metrics.ServeHTTP(w, r)
}
