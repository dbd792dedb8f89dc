//go:build linux

package platform

import (
	"fmt"
	"log/slog"
	"math"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// fiTrim is FITRIM, _IOWR('X', 121, struct fstrim_range); golang.org/x/sys/unix
// does not export it.
const fiTrim = 0xc0185879

// fstrimRange mirrors struct fstrim_range.
type fstrimRange struct {
	Start  uint64
	Len    uint64
	MinLen uint64
}

// Trimmer discards unused blocks of a mounted filesystem.
type Trimmer struct{}

// Trim issues FITRIM over the whole filesystem mounted at mountPoint.
func (Trimmer) Trim(mountPoint string) error {
	fd, err := unix.Open(mountPoint, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return domain.ErrControl.WithDetails(fmt.Sprintf("open %s", mountPoint)).WithCause(err)
	}
	defer unix.Close(fd)

	r := fstrimRange{Len: math.MaxUint64}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(fiTrim), uintptr(unsafe.Pointer(&r))); errno != 0 {
		return domain.ErrControl.WithDetails(fmt.Sprintf("trim %s", mountPoint)).WithCause(errno)
	}
	return nil
}

// Remounter re-enables filesystem-native checkpointing.
type Remounter struct{}

// EnableCheckpoint remounts the volume with checkpoint=enable appended to
// its current options, keeping the mount flags from fstab.
func (Remounter) EnableCheckpoint(entry domain.FstabEntry, mount domain.MountEntry) error {
	options := mount.Options + ",checkpoint=enable"
	if err := unix.Mount(mount.BlkDevice, mount.MountPoint, "none", unix.MS_REMOUNT|entry.Flags, options); err != nil {
		return domain.ErrControl.WithDetails(fmt.Sprintf("remount %s", mount.MountPoint)).WithCause(err)
	}
	return nil
}

// Rebooter restarts the machine immediately, without a graceful shutdown.
type Rebooter struct {
	// DryRun logs instead of restarting.
	DryRun bool
	Logger *slog.Logger
}

// Restart syncs filesystems and restarts. It only returns on failure or in
// dry-run mode.
func (r *Rebooter) Restart(reason string) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if r.DryRun {
		logger.Warn("restart requested (dry run)", "reason", reason)
		return nil
	}

	logger.Warn("restarting", "reason", reason)
	unix.Sync()
	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return domain.ErrControl.WithDetails("reboot").WithCause(err)
	}
	return nil
}
