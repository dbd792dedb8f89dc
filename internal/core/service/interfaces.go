package service

import (
	"context"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
	"github.com/kshms10904/platform-system-vold/internal/storage/bowlog"
	"github.com/kshms10904/platform-system-vold/internal/storage/history"
)

// VolumeTable is the static volume configuration (fstab).
type VolumeTable interface {
	Volumes() ([]domain.FstabEntry, error)
}

// MountTable lists currently mounted volumes.
type MountTable interface {
	Mounted() ([]domain.MountEntry, error)
}

// BootControl reports the booted slot.
type BootControl interface {
	SlotSuffix() (string, error)
	MarkedSuccessful() (bool, error)
}

// BowController toggles the backup-on-write driver of a block device.
type BowController interface {
	SetState(blkDevice string, state domain.BowState) error
}

// FsCheckpointer re-enables filesystem-native checkpointing on commit.
type FsCheckpointer interface {
	EnableCheckpoint(entry domain.FstabEntry, mount domain.MountEntry) error
}

// Trimmer discards unused blocks of a mounted filesystem.
type Trimmer interface {
	Trim(mountPoint string) error
}

// Rebooter restarts the machine without a graceful shutdown.
type Rebooter interface {
	Restart(reason string) error
}

// CommitNotifier announces a finished commit to other services.
type CommitNotifier interface {
	NotifyCommitted() error
}

// RecordStore persists the checkpoint record.
type RecordStore interface {
	// Read returns the trimmed content and whether the record exists.
	Read() (string, bool, error)
	Write(content string) error
	// Remove deletes the record; a missing record is not an error.
	Remove() error
}

// Restorer replays the checkpoint log of a block device.
type Restorer interface {
	RestoreDevice(ctx context.Context, path string) (*bowlog.Report, error)
}

// EventRecorder journals lifecycle events.
type EventRecorder interface {
	Record(ctx context.Context, ev history.Event) (history.Event, error)
}

// Metrics receives lifecycle measurements.
type Metrics interface {
	RecordOperation(op string, err error)
	SetActive(active bool)
	RecordRestore(outcome string, logSectors int, bytes uint64)
}
