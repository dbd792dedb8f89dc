package platform

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// DefaultMountsPath is the kernel mount table.
const DefaultMountsPath = "/proc/mounts"

// MountsFile reads a mount table in /proc/mounts format.
type MountsFile struct {
	Path string
}

// Mounted returns the currently mounted volumes.
func (m *MountsFile) Mounted() ([]domain.MountEntry, error) {
	file, err := os.Open(m.Path)
	if err != nil {
		return nil, domain.ErrRecordIO.WithDetails(fmt.Sprintf("open mount table %s", m.Path)).WithCause(err)
	}
	defer file.Close()
	return ParseMounts(file)
}

// ParseMounts parses /proc/mounts content.
func ParseMounts(r io.Reader) ([]domain.MountEntry, error) {
	var entries []domain.MountEntry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		entries = append(entries, domain.MountEntry{
			BlkDevice:  unescapeMountField(fields[0]),
			MountPoint: unescapeMountField(fields[1]),
			FsType:     fields[2],
			Options:    fields[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.ErrRecordIO.WithDetails("read mount table").WithCause(err)
	}
	return entries, nil
}

// unescapeMountField decodes the \NNN octal escapes the kernel uses for
// spaces, tabs and backslashes.
func unescapeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+4 <= len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
