package config

import (
	"time"

	"github.com/kshms10904/platform-system-vold/internal/platform"
	"github.com/kshms10904/platform-system-vold/internal/storage/bowlog"
	"github.com/kshms10904/platform-system-vold/internal/storage/history"
	"github.com/kshms10904/platform-system-vold/internal/storage/record"
)

// Default configuration values.
const (
	DefaultLocalSocket     = "/dev/socket/checkpointd"
	DefaultRateLimit       = 20
	DefaultShutdownTimeout = 10 * time.Second

	DefaultHistoryDir = "/metadata/vold/history"

	DefaultSlotSuccessFile = "/metadata/vold/slot_successful"
	DefaultCommittedFile   = "/metadata/vold/checkpoint_committed"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default daemon configuration.
func Default() *DaemonConfig {
	return &DaemonConfig{
		Server: ServerSection{
			Local:           LocalConfig{Path: DefaultLocalSocket},
			RateLimit:       DefaultRateLimit,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			RecordFile:  record.DefaultPath,
			HistoryDir:  DefaultHistoryDir,
			HistoryKeep: history.DefaultKeep,
		},
		Platform: PlatformSection{
			Fstab:           platform.DefaultFstabPath,
			Mounts:          platform.DefaultMountsPath,
			SysfsRoot:       platform.DefaultSysfsRoot,
			Cmdline:         platform.DefaultCmdlinePath,
			SlotSuccessFile: DefaultSlotSuccessFile,
			CommittedFile:   DefaultCommittedFile,
		},
		Restore: RestoreSection{
			BlockSize:  bowlog.BlockSize,
			SectorSize: bowlog.SectorSize,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
