package platform

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// DefaultFstabPath is the default volume configuration table.
const DefaultFstabPath = "/vendor/etc/fstab"

// FstabFile reads an Android-style fstab:
//
//	<blk_device> <mount_point> <fs_type> <mnt_flags,options> <fs_mgr_flags>
//
// The file is re-read on every call so that edits take effect without a
// restart.
type FstabFile struct {
	Path string
}

// Volumes returns every entry of the table.
func (f *FstabFile) Volumes() ([]domain.FstabEntry, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, domain.ErrRecordIO.WithDetails(fmt.Sprintf("open fstab %s", f.Path)).WithCause(err)
	}
	defer file.Close()

	entries, err := ParseFstab(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return entries, nil
}

// EntryForMountPoint returns the first entry mounted at mountPoint.
func EntryForMountPoint(entries []domain.FstabEntry, mountPoint string) (domain.FstabEntry, bool) {
	for _, e := range entries {
		if e.MountPoint == mountPoint {
			return e, true
		}
	}
	return domain.FstabEntry{}, false
}

// ParseFstab parses fstab content. Blank lines and # comments are skipped.
func ParseFstab(r io.Reader) ([]domain.FstabEntry, error) {
	var entries []domain.FstabEntry

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, domain.ErrRecordIO.WithDetails(fmt.Sprintf("fstab line %d: expected at least 4 fields, got %d", lineNo, len(fields)))
		}

		entry := domain.FstabEntry{
			BlkDevice:  fields[0],
			MountPoint: fields[1],
			FsType:     fields[2],
		}
		entry.Flags, entry.Options = parseMountFlags(fields[3])

		if len(fields) > 4 {
			for _, flag := range strings.Split(fields[4], ",") {
				switch flag {
				case "checkpoint=block":
					entry.CheckpointBlock = true
				case "checkpoint=fs":
					entry.CheckpointFs = true
				}
			}
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.ErrRecordIO.WithDetails("read fstab").WithCause(err)
	}
	return entries, nil
}

// parseMountFlags splits the mount-flags column into MS_* flags and the
// remaining filesystem data options.
func parseMountFlags(column string) (uintptr, string) {
	var flags uintptr
	var options []string
	for _, word := range strings.Split(column, ",") {
		if word == "" || word == "defaults" {
			continue
		}
		if bit, ok := mountFlagBits[word]; ok {
			flags |= bit
			continue
		}
		options = append(options, word)
	}
	return flags, strings.Join(options, ",")
}
