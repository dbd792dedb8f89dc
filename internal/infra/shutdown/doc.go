// Package shutdown coordinates graceful daemon termination.
//
// Hooks registered with OnShutdown run in reverse registration order once
// SIGINT or SIGTERM arrives or the parent context ends, bounded by a
// timeout.
package shutdown
