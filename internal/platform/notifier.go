package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// CommittedMarker announces a finished commit by writing "1" to a file that
// other services watch.
type CommittedMarker struct {
	Path string
}

// NotifyCommitted writes the marker. An empty path disables it.
func (c *CommittedMarker) NotifyCommitted() error {
	if c.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return domain.ErrControl.WithDetails(fmt.Sprintf("create %s", filepath.Dir(c.Path))).WithCause(err)
	}
	if err := os.WriteFile(c.Path, []byte("1"), 0o644); err != nil {
		return domain.ErrControl.WithDetails(fmt.Sprintf("write %s", c.Path)).WithCause(err)
	}
	return nil
}
