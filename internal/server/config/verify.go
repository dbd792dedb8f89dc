package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"

	"github.com/kshms10904/platform-system-vold/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *DaemonConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyStorage(&cfg.Storage),
		verifyPlatform(&cfg.Platform),
		verifyRestore(&cfg.Restore),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Local.Path == "" {
		return errors.New("server.local.path is required")
	}
	if !filepath.IsAbs(cfg.Local.Path) {
		return fmt.Errorf("server.local.path %q must be absolute", cfg.Local.Path)
	}
	if cfg.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("server.metrics.addr: %w", err)
		}
	}
	if cfg.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.RecordFile == "" {
		return errors.New("storage.record_file is required")
	}
	if cfg.HistoryKeep < 0 {
		return errors.New("storage.history_keep must not be negative")
	}
	return nil
}

func verifyPlatform(cfg *PlatformSection) error {
	var errs []error
	for key, val := range map[string]string{
		"platform.fstab":      cfg.Fstab,
		"platform.mounts":     cfg.Mounts,
		"platform.sysfs_root": cfg.SysfsRoot,
		"platform.cmdline":    cfg.Cmdline,
	} {
		if val == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	return errors.Join(errs...)
}

func verifyRestore(cfg *RestoreSection) error {
	if cfg.SectorSize <= 0 || cfg.BlockSize <= 0 {
		return errors.New("restore.block_size and restore.sector_size must be positive")
	}
	if cfg.BlockSize%cfg.SectorSize != 0 {
		return fmt.Errorf("restore.block_size %d is not a multiple of restore.sector_size %d",
			cfg.BlockSize, cfg.SectorSize)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text", "console":
		return nil
	}
	return fmt.Errorf("log.format %q is not json or text", cfg.Format)
}
