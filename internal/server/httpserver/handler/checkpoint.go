package handler

import (
	"net/http"
	"strconv"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

func (h *Handler) handleSupported(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.SupportsCheckpoint(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, SupportedResponse{Supported: ok})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, st)
}

func (h *Handler) handleNeedsCheckpoint(w http.ResponseWriter, r *http.Request) {
	needed, err := h.svc.NeedsCheckpoint(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, NeededResponse{Needed: needed})
}

func (h *Handler) handleNeedsRollback(w http.ResponseWriter, r *http.Request) {
	needed, err := h.svc.NeedsRollback(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, NeededResponse{Needed: needed})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Retry == nil {
		h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("retry is required"))
		return
	}
	if err := h.svc.StartCheckpoint(r.Context(), *req.Retry); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, nil)
}

func (h *Handler) handlePrepare(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.PrepareCheckpoint(r.Context()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, nil)
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CommitChanges(r.Context()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, nil)
}

// handleAbort answers before the restart would cut the connection only
// when restarts are simulated; a real restart never returns.
func (h *Handler) handleAbort(w http.ResponseWriter, r *http.Request) {
	var req AbortRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.AbortChanges(r.Context(), req.Reason); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusAccepted, nil)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.BlockDevice == "" {
		h.handleServiceError(w, r, domain.ErrInvalidDevice.WithDetails("block_device is required"))
		return
	}
	report, err := h.svc.RestoreCheckpoint(r.Context(), req.BlockDevice)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, report)
}

func (h *Handler) handleMarkBootAttempt(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkBootAttempt(r.Context()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, nil)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.handleServiceError(w, r, domain.ErrUnsupported.WithDetails("history disabled"))
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			h.handleServiceError(w, r, domain.ErrBadRequest.WithDetails("limit must be between 1 and 1000"))
			return
		}
		limit = n
	}

	events, err := h.history.List(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, HistoryResponse{Events: events})
}
