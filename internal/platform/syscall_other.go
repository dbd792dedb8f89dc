//go:build !linux

package platform

import (
	"log/slog"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// Trimmer is unavailable on this platform.
type Trimmer struct{}

// Trim returns domain.ErrUnsupported.
func (Trimmer) Trim(mountPoint string) error {
	return domain.ErrUnsupported.WithDetails("trim " + mountPoint)
}

// Remounter is unavailable on this platform.
type Remounter struct{}

// EnableCheckpoint returns domain.ErrUnsupported.
func (Remounter) EnableCheckpoint(entry domain.FstabEntry, mount domain.MountEntry) error {
	return domain.ErrUnsupported.WithDetails("remount " + mount.MountPoint)
}

// Rebooter only supports dry-run mode on this platform.
type Rebooter struct {
	DryRun bool
	Logger *slog.Logger
}

// Restart logs in dry-run mode and otherwise returns domain.ErrUnsupported.
func (r *Rebooter) Restart(reason string) error {
	if r.DryRun {
		logger := r.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("restart requested (dry run)", "reason", reason)
		return nil
	}
	return domain.ErrUnsupported.WithDetails("reboot")
}
