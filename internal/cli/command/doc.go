// Package command defines the checkpointctl commands with urfave/cli/v2.
//
// Most commands are thin clients of the checkpointd management API. The
// early-boot commands (boot, inspect, restore --offline) run in process
// against the daemon configuration instead, because they execute before
// the daemon starts.
package command
