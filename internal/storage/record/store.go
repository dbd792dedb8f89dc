// Package record persists the checkpoint record file.
package record

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// DefaultPath is where the checkpoint record lives on the metadata partition.
const DefaultPath = "/metadata/vold/checkpoint"

// FileStore keeps the checkpoint record in a single small text file.
type FileStore struct {
	Path string
}

// NewFileStore creates a store for path, falling back to DefaultPath.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{Path: path}
}

// Read returns the trimmed record content and whether the record exists.
func (s *FileStore) Read() (string, bool, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, domain.ErrRecordIO.WithDetails(fmt.Sprintf("read %s", s.Path)).WithCause(err)
	}
	return strings.TrimSpace(string(data)), true, nil
}

// Write replaces the record atomically.
func (s *FileStore) Write(content string) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return domain.ErrRecordIO.WithDetails(fmt.Sprintf("create %s", dir)).WithCause(err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return domain.ErrRecordIO.WithDetails(fmt.Sprintf("create temp in %s", dir)).WithCause(err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return domain.ErrRecordIO.WithDetails(fmt.Sprintf("write %s", tmpPath)).WithCause(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return domain.ErrRecordIO.WithDetails(fmt.Sprintf("sync %s", tmpPath)).WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return domain.ErrRecordIO.WithDetails(fmt.Sprintf("close %s", tmpPath)).WithCause(err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		cleanup()
		return domain.ErrRecordIO.WithDetails(fmt.Sprintf("rename to %s", s.Path)).WithCause(err)
	}

	syncDir(dir)
	return nil
}

// Remove deletes the record. A missing record is not an error.
func (s *FileStore) Remove() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.ErrRecordIO.WithDetails(fmt.Sprintf("remove %s", s.Path)).WithCause(err)
	}
	syncDir(filepath.Dir(s.Path))
	return nil
}

// syncDir makes a rename or unlink in dir durable. Errors are ignored; not
// every filesystem supports fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
