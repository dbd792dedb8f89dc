package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// DefaultCmdlinePath is the kernel command line.
const DefaultCmdlinePath = "/proc/cmdline"

const slotSuffixParam = "androidboot.slot_suffix="

// BootControl reports the booted slot from the kernel command line and
// whether it has been marked successful from a marker file written by the
// boot-control agent.
type BootControl struct {
	CmdlinePath string
	SuccessFile string
}

// SlotSuffix returns the suffix of the booted slot, e.g. "_a".
func (b *BootControl) SlotSuffix() (string, error) {
	path := b.CmdlinePath
	if path == "" {
		path = DefaultCmdlinePath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.ErrControl.WithDetails(fmt.Sprintf("read %s", path)).WithCause(err)
	}
	for _, param := range strings.Fields(string(data)) {
		if suffix, ok := strings.CutPrefix(param, slotSuffixParam); ok && suffix != "" {
			return suffix, nil
		}
	}
	return "", domain.ErrControl.WithDetails("no slot suffix on kernel command line")
}

// MarkedSuccessful reports whether the booted slot has been marked
// successful. Without a configured marker file boot control is unavailable.
func (b *BootControl) MarkedSuccessful() (bool, error) {
	if b.SuccessFile == "" {
		return false, domain.ErrUnsupported.WithDetails("boot control marker not configured")
	}
	_, err := os.Stat(b.SuccessFile)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, domain.ErrControl.WithDetails(fmt.Sprintf("stat %s", b.SuccessFile)).WithCause(err)
}
