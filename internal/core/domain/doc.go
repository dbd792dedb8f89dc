// Package domain defines the core checkpoint domain models.
//
// Domain models are pure values without IO dependencies. This package
// contains:
//
//   - Record: the persisted checkpoint retry counter and its text form
//   - FstabEntry, MountEntry: volume descriptions used by the lifecycle
//   - Errors: the structured error taxonomy shared by every layer
package domain
