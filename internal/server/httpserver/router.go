package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/kshms10904/platform-system-vold/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the management router.
type RouterConfig struct {
	Service handler.CheckpointAPI

	// History is optional.
	History handler.HistoryLister

	// MetricsHandler serves /metrics; nil disables it.
	MetricsHandler http.Handler

	// Requests records per-request metrics; nil disables them.
	Requests RequestRecorder

	Logger *slog.Logger

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64

	// EnableAudit logs every request.
	EnableAudit bool
}

// NewRouter builds the management handler with its middleware chain:
// Recover, RequestID, Metrics, RateLimit, Audit.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	h := handler.New(cfg.Service, cfg.History, cfg.MetricsHandler, log)

	mws := []Middleware{Recover(log), RequestID(log)}
	if cfg.Requests != nil {
		mws = append(mws, Metrics(cfg.Requests))
	}
	if cfg.RateLimit > 0 {
		mws = append(mws, RateLimit(cfg.RateLimit, int(cfg.RateLimit)+1))
	}
	if cfg.EnableAudit {
		mws = append(mws, Audit(log))
	}
	return Chain(h, mws...)
}
