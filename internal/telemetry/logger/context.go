package logger

import "context"

type contextKey string

const (
	loggerKey    contextKey = "checkpoint.logger"
	requestIDKey contextKey = "checkpoint.request_id"
	deviceKey    contextKey = "checkpoint.device"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRequestID adds a control request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithDevice tags the context with the block device being worked on.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceKey, device)
}

// DeviceFromContext extracts the block device from context.
func DeviceFromContext(ctx context.Context) string {
	if d, ok := ctx.Value(deviceKey).(string); ok {
		return d
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger with the
// request ID and device from the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if reqID := RequestIDFromContext(ctx); reqID != "" {
		l = l.With("request_id", reqID)
	}
	if dev := DeviceFromContext(ctx); dev != "" {
		l = l.With("device", dev)
	}
	return l
}
