// Package main provides the entry point for checkpointd.
//
// checkpointd owns the checkpoint lifecycle at runtime. It serves the
// management API on a unix socket, keeps a journal of lifecycle events and
// optionally exposes prometheus metrics on TCP.
//
// Usage:
//
//	checkpointd --config /etc/checkpointd.yaml
//
// Every configuration key can also be set through CHECKPOINTD_ environment
// variables, e.g. CHECKPOINTD_LOG__LEVEL=debug.
package main
