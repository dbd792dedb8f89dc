// Package main provides the entry point for checkpointctl.
//
// checkpointctl drives the checkpoint lifecycle through checkpointd and
// runs the early-boot recovery steps in process:
//
//	checkpointctl start --retry 2
//	checkpointctl needs-rollback --quiet
//	checkpointctl commit
//	checkpointctl --config /etc/checkpointd.yaml boot
//	checkpointctl inspect /dev/block/dm-4 -o yaml
package main
