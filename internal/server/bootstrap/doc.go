// Package bootstrap builds the checkpoint service and its platform
// collaborators from a DaemonConfig. checkpointd and the offline
// checkpointctl commands share it so both act on the same files.
package bootstrap
