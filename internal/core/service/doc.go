// Package service provides the checkpoint lifecycle service.
//
// CheckpointService decides when backup-on-write logging starts, when it
// is committed and when a rollback is required. It owns the in-memory
// checkpointing flag and serialises every operation behind one lock, so
// at most one checkpoint transaction is in flight.
//
// Every system dependency is an interface defined here, allowing the
// daemon, the early-boot CLI path and the tests to plug in their own
// implementations.
package service
