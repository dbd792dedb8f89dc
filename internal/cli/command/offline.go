package command

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/kshms10904/platform-system-vold/internal/cli/output"
	"github.com/kshms10904/platform-system-vold/internal/core/service"
	"github.com/kshms10904/platform-system-vold/internal/server/bootstrap"
	"github.com/kshms10904/platform-system-vold/internal/server/config"
	"github.com/kshms10904/platform-system-vold/internal/storage/bowlog"
	"github.com/kshms10904/platform-system-vold/internal/telemetry/logger"
)

// BootCommand runs the early-boot recovery sequence in process.
func BootCommand() *cli.Command {
	return &cli.Command{
		Name:  "boot",
		Usage: "Early-boot recovery: count the attempt, roll back if exhausted, report checkpoint mode",
		Action: func(c *cli.Context) error {
			svc, closeFn, err := offlineService(c)
			if err != nil {
				return err
			}
			defer closeFn()

			report, runErr := svc.RecoverAtBoot(commandContext(c))
			if report != nil {
				if err := render(c, report); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}

// InspectCommand dumps the log chain of a device without modifying it.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the checkpoint log chain of a block device or image (read-only)",
		ArgsUsage: "BLOCK_DEVICE",
		Action: func(c *cli.Context) error {
			dev := c.Args().First()
			if dev == "" {
				return fmt.Errorf("block device required")
			}
			cfg, log, err := offlineConfig(c)
			if err != nil {
				return err
			}
			engine, err := bootstrap.NewEngine(cfg.Restore, log)
			if err != nil {
				return err
			}

			chain, err := engine.InspectDevice(commandContext(c), dev)
			if err != nil {
				return err
			}
			if ParseGlobalFlags(c).Output == output.FormatTable {
				return renderChain(c, chain)
			}
			return render(c, chain)
		},
	}
}

func restoreOffline(c *cli.Context, dev string) (*bowlog.Report, error) {
	svc, closeFn, err := offlineService(c)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return svc.RestoreCheckpoint(commandContext(c), dev)
}

// offlineConfig loads the daemon configuration named by --config and a
// text logger on stderr so stdout stays machine-readable.
func offlineConfig(c *cli.Context) (*config.DaemonConfig, *slog.Logger, error) {
	cfg, _, err := bootstrap.LoadConfig(ParseGlobalFlags(c).Config)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: "text",
		Output: os.Stderr,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.Slog(), nil
}

// offlineService builds the checkpoint service in process. The event
// journal is best effort: early in boot its directory may not be mounted.
func offlineService(c *cli.Context) (*service.CheckpointService, func(), error) {
	cfg, log, err := offlineConfig(c)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	journal, err := bootstrap.OpenHistory(cfg.Storage, log)
	if err != nil {
		log.Warn("event history unavailable", "error", err)
		journal = nil
	}
	if journal != nil {
		closeFn = func() {
			if err := journal.Close(); err != nil {
				log.Warn("close event history", "error", err)
			}
		}
	}

	svc, err := bootstrap.NewService(cfg, bootstrap.Options{Logger: log, History: journal})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

// renderChain prints one row per log entry, newest log sector first.
func renderChain(c *cli.Context, chain *bowlog.Chain) error {
	w := stdout(c)
	state := "valid"
	if !chain.Valid {
		state = "invalid: " + chain.Problem
	}
	fmt.Fprintf(w, "top sequence %d, %d log sectors, %s\n\n", chain.TopSequence, len(chain.Sectors), state)

	table := &output.Table{}
	table.SetHeaders("SEQUENCE", "ENTRY", "SOURCE", "DEST", "SIZE", "CHECKSUM")
	for _, ls := range chain.Sectors {
		for i, e := range ls.Entries {
			table.AddRow(
				strconv.FormatUint(uint64(ls.Sequence), 10),
				strconv.Itoa(i),
				strconv.FormatUint(e.Source, 10),
				strconv.FormatUint(e.Dest, 10),
				strconv.FormatUint(uint64(e.Size), 10),
				fmt.Sprintf("%08x", e.Checksum),
			)
		}
	}
	return table.Render(w)
}
