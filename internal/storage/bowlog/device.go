package bowlog

import (
	"fmt"
	"io"
	"os"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
)

// Device is raw random access to a block device.
type Device interface {
	io.ReaderAt
	io.WriterAt
}

// syncer is implemented by devices that can flush written data.
type syncer interface {
	Sync() error
}

// FileDevice is a block device or image file opened for restore.
type FileDevice struct {
	*os.File
}

// OpenDevice opens path read-write. Block devices are opened exclusively so
// that a mounted device is refused.
func OpenDevice(path string) (*FileDevice, error) {
	flags := os.O_RDWR
	if fi, err := os.Stat(path); err == nil && fi.Mode()&os.ModeDevice != 0 {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, domain.ErrDeviceIO.WithDetails(fmt.Sprintf("open %s", path)).WithCause(err)
	}
	return &FileDevice{File: f}, nil
}

// OpenDeviceReadOnly opens path for inspection. Writes through the
// returned device fail.
func OpenDeviceReadOnly(path string) (*FileDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ErrDeviceIO.WithDetails(fmt.Sprintf("open %s", path)).WithCause(err)
	}
	return &FileDevice{File: f}, nil
}

// Close flushes written data and closes the device.
func (d *FileDevice) Close() error {
	syncErr := d.File.Sync()
	closeErr := d.File.Close()
	if syncErr != nil {
		return domain.ErrDeviceIO.WithDetails(fmt.Sprintf("sync %s", d.Name())).WithCause(syncErr)
	}
	if closeErr != nil {
		return domain.ErrDeviceIO.WithDetails(fmt.Sprintf("close %s", d.Name())).WithCause(closeErr)
	}
	return nil
}
