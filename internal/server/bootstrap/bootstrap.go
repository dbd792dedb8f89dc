package bootstrap

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kshms10904/platform-system-vold/internal/core/service"
	"github.com/kshms10904/platform-system-vold/internal/platform"
	"github.com/kshms10904/platform-system-vold/internal/server/config"
	"github.com/kshms10904/platform-system-vold/internal/storage/bowlog"
	"github.com/kshms10904/platform-system-vold/internal/storage/history"
	"github.com/kshms10904/platform-system-vold/internal/storage/record"
)

// Options carries the optional observers of the service.
type Options struct {
	Logger  *slog.Logger
	History *history.Journal
	Metrics service.Metrics
}

// NewEngine creates a restore engine with the configured log geometry.
func NewEngine(cfg config.RestoreSection, logger *slog.Logger) (*bowlog.Engine, error) {
	return bowlog.NewEngine(
		bowlog.WithBlockSize(cfg.BlockSize),
		bowlog.WithSectorSize(cfg.SectorSize),
		bowlog.WithLogger(logger),
	)
}

// NewService wires the platform adapters named by cfg into a
// CheckpointService.
func NewService(cfg *config.DaemonConfig, opts Options) (*service.CheckpointService, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine, err := NewEngine(cfg.Restore, logger.With("component", "bowlog"))
	if err != nil {
		return nil, fmt.Errorf("restore engine: %w", err)
	}

	p := cfg.Platform
	deps := service.Dependencies{
		Volumes:  &platform.FstabFile{Path: p.Fstab},
		Mounts:   &platform.MountsFile{Path: p.Mounts},
		Boot:     &platform.BootControl{CmdlinePath: p.Cmdline, SuccessFile: p.SlotSuccessFile},
		Bow:      &platform.BowControl{SysfsRoot: p.SysfsRoot},
		Fs:       platform.Remounter{},
		Trimmer:  platform.Trimmer{},
		Rebooter: &platform.Rebooter{DryRun: p.DryRunReboot, Logger: logger.With("component", "reboot")},
		Notifier: &platform.CommittedMarker{Path: p.CommittedFile},
		Records:  record.NewFileStore(cfg.Storage.RecordFile),
		Restorer: engine,
		Logger:   logger.With("component", "checkpoint"),
	}
	// Typed nils must not reach the interface fields.
	if opts.History != nil {
		deps.Events = opts.History
	}
	if opts.Metrics != nil {
		deps.Metrics = opts.Metrics
	}
	return service.NewCheckpointService(deps), nil
}

// OpenHistory opens the event journal, or returns nil when it is disabled.
func OpenHistory(cfg config.StorageSection, logger *slog.Logger) (*history.Journal, error) {
	if cfg.HistoryDir == "" {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.HistoryDir, 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	hcfg := history.DefaultConfig(cfg.HistoryDir)
	if cfg.HistoryKeep > 0 {
		hcfg.Keep = cfg.HistoryKeep
	}
	return history.Open(hcfg, logger.With("component", "history"))
}
