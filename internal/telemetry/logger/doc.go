// Package logger provides structured logging for the checkpoint daemon and
// its control tool.
//
// It wraps log/slog:
//
//   - logger.go: handler construction, level control, the package default
//   - context.go: context propagation of the logger and request metadata
//   - attrs.go: rendering of checkpoint error codes in log records
package logger
