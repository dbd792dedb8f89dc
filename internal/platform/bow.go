package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// DefaultSysfsRoot is where block device attributes live.
const DefaultSysfsRoot = "/sys"

// BowControl toggles the backup-on-write driver through its sysfs state file.
type BowControl struct {
	SysfsRoot string
}

// StatePath returns the driver state file for blkDevice.
// "/dev/block/dm-4" maps to "<sysfs>/block/dm-4/bow/state".
func (b *BowControl) StatePath(blkDevice string) (string, error) {
	rel, ok := strings.CutPrefix(blkDevice, "/dev/")
	if !ok || rel == "" || strings.Contains(rel, "..") {
		return "", domain.ErrInvalidDevice.WithDetails(blkDevice)
	}
	root := b.SysfsRoot
	if root == "" {
		root = DefaultSysfsRoot
	}
	return filepath.Join(root, rel, "bow", "state"), nil
}

// SetState writes state to the driver of blkDevice.
func (b *BowControl) SetState(blkDevice string, state domain.BowState) error {
	path, err := b.StatePath(blkDevice)
	if err != nil {
		return err
	}
	// The attribute already exists; never create it.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return domain.ErrControl.WithDetails(fmt.Sprintf("open %s", path)).WithCause(err)
	}
	if _, err := f.WriteString(string(state)); err != nil {
		_ = f.Close()
		return domain.ErrControl.WithDetails(fmt.Sprintf("write %q to %s", state, path)).WithCause(err)
	}
	if err := f.Close(); err != nil {
		return domain.ErrControl.WithDetails(fmt.Sprintf("close %s", path)).WithCause(err)
	}
	return nil
}
