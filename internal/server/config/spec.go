package config

import "time"

// DaemonConfig is the root configuration for checkpointd.
type DaemonConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Platform PlatformSection `koanf:"platform"`
	Restore  RestoreSection  `koanf:"restore"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures the management endpoints.
type ServerSection struct {
	Local   LocalConfig   `koanf:"local"`
	Metrics MetricsConfig `koanf:"metrics"`

	// RateLimit caps management requests per second. Zero disables it.
	RateLimit float64 `koanf:"rate_limit"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LocalConfig configures the management socket.
type LocalConfig struct {
	Path string `koanf:"path"`
}

// MetricsConfig configures the optional TCP metrics listener.
type MetricsConfig struct {
	// Addr is empty when metrics are only served on the socket.
	Addr string `koanf:"addr"`
}

// StorageSection configures persisted state.
type StorageSection struct {
	RecordFile string `koanf:"record_file"`

	// HistoryDir is the event journal directory. Empty disables the journal.
	HistoryDir  string `koanf:"history_dir"`
	HistoryKeep int    `koanf:"history_keep"`
}

// PlatformSection points the platform adapters at their files.
type PlatformSection struct {
	Fstab           string `koanf:"fstab"`
	Mounts          string `koanf:"mounts"`
	SysfsRoot       string `koanf:"sysfs_root"`
	Cmdline         string `koanf:"cmdline"`
	SlotSuccessFile string `koanf:"slot_success_file"`
	CommittedFile   string `koanf:"committed_file"`
	DryRunReboot    bool   `koanf:"dry_run_reboot"`
}

// RestoreSection sets the log geometry.
type RestoreSection struct {
	BlockSize  int `koanf:"block_size"`
	SectorSize int `koanf:"sector_size"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
