package logger

import (
	"log/slog"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// replaceAttr expands error attributes carrying a checkpoint error code
// into a group with the message and the code, so log pipelines can filter
// on codes without parsing messages.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	err, ok := a.Value.Any().(error)
	if !ok || err == nil {
		return a
	}
	code := domain.GetErrorCode(err)
	if code == "" {
		return slog.String(a.Key, err.Error())
	}
	return slog.Group(a.Key,
		slog.String("msg", err.Error()),
		slog.String("code", code),
	)
}
