package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
	"github.com/kshms10904/platform-system-vold/internal/storage/bowlog"
	"github.com/kshms10904/platform-system-vold/internal/storage/history"
	"github.com/kshms10904/platform-system-vold/internal/telemetry/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// CheckpointAPI is the checkpoint lifecycle exposed over HTTP.
type CheckpointAPI interface {
	SupportsCheckpoint(ctx context.Context) (bool, error)
	StartCheckpoint(ctx context.Context, retry int) error
	PrepareCheckpoint(ctx context.Context) error
	CommitChanges(ctx context.Context) error
	AbortChanges(ctx context.Context, reason string) error
	NeedsCheckpoint(ctx context.Context) (bool, error)
	NeedsRollback(ctx context.Context) (bool, error)
	MarkBootAttempt(ctx context.Context) error
	RestoreCheckpoint(ctx context.Context, blockDevice string) (*bowlog.Report, error)
	Status(ctx context.Context) (domain.Status, error)
}

// HistoryLister lists journaled lifecycle events, newest first.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Event, error)
}

// Handler routes management requests to the checkpoint service.
type Handler struct {
	svc     CheckpointAPI
	history HistoryLister
	metrics http.Handler
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New creates a Handler. history and metrics may be nil, in which case
// their endpoints report the feature as unsupported.
func New(svc CheckpointAPI, hist HistoryLister, metrics http.Handler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc:     svc,
		history: hist,
		metrics: metrics,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /metrics", h.handleMetrics)

	h.mux.HandleFunc("GET /v1/checkpoint/supported", h.handleSupported)
	h.mux.HandleFunc("GET /v1/checkpoint/status", h.handleStatus)
	h.mux.HandleFunc("GET /v1/checkpoint/needs-checkpoint", h.handleNeedsCheckpoint)
	h.mux.HandleFunc("GET /v1/checkpoint/needs-rollback", h.handleNeedsRollback)
	h.mux.HandleFunc("POST /v1/checkpoint/start", h.handleStart)
	h.mux.HandleFunc("POST /v1/checkpoint/prepare", h.handlePrepare)
	h.mux.HandleFunc("POST /v1/checkpoint/commit", h.handleCommit)
	h.mux.HandleFunc("POST /v1/checkpoint/abort", h.handleAbort)
	h.mux.HandleFunc("POST /v1/checkpoint/restore", h.handleRestore)
	h.mux.HandleFunc("POST /v1/checkpoint/mark-boot-attempt", h.handleMarkBootAttempt)

	h.mux.HandleFunc("GET /v1/history", h.handleHistory)
}

// writeJSON writes a success envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := logger.RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, details)); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		var details any
		if de.Details != "" {
			details = de.Details
		}
		h.writeError(w, r, errorCodeToHTTPStatus(de.Code), de.Code, err.Error(), details)
		return
	}

	logger.L(r.Context()).Error("internal error", "path", r.URL.Path, "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternal.Code, err.Error(), nil)
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body", err.Error())
	return false
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-5010"):
		return http.StatusNotImplemented
	case strings.HasPrefix(code, "CP-ARG-"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "CP-FMT-"):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
