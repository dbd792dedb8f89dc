package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/kshms10904/platform-system-vold/internal/server/httpserver/handler"
	"github.com/kshms10904/platform-system-vold/internal/storage/bowlog"
)

// ExitNotNeeded is the exit status of a quiet needs-* query answering no.
const ExitNotNeeded = 3

func quietFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		Usage:   fmt.Sprintf("Print nothing; exit 0 if needed, %d if not", ExitNotNeeded),
	}
}

// SupportedCommand reports whether any volume is configured for checkpoints.
func SupportedCommand() *cli.Command {
	return &cli.Command{
		Name:  "supported",
		Usage: "Report whether any volume supports checkpointing",
		Action: func(c *cli.Context) error {
			var resp handler.SupportedResponse
			if err := newClient(c).Get(commandContext(c), "/v1/checkpoint/supported", &resp); err != nil {
				return err
			}
			return render(c, resp)
		},
	}
}

// StartCommand begins a checkpoint.
func StartCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Start a checkpoint that survives the given number of failed boots",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "retry",
				Aliases: []string{"r"},
				Usage:   "Boot attempts to allow; -1 keeps the checkpoint until the slot changes",
				Value:   1,
			},
		},
		Action: func(c *cli.Context) error {
			retry := c.Int("retry")
			req := handler.StartRequest{Retry: &retry}
			if err := newClient(c).Post(commandContext(c), "/v1/checkpoint/start", req, nil); err != nil {
				return err
			}
			return acknowledge(c, "start", fmt.Sprintf("checkpoint started (retry %d)", retry))
		},
	}
}

// PrepareCommand trims checkpointed filesystems before a commit.
func PrepareCommand() *cli.Command {
	return simplePost("prepare", "/v1/checkpoint/prepare",
		"Trim checkpointed filesystems ahead of a commit", "checkpoint prepared")
}

// CommitCommand commits the pending checkpoint.
func CommitCommand() *cli.Command {
	return simplePost("commit", "/v1/checkpoint/commit",
		"Commit the pending checkpoint", "checkpoint committed")
}

// MarkBootAttemptCommand consumes one boot attempt of the checkpoint.
func MarkBootAttemptCommand() *cli.Command {
	return simplePost("mark-boot-attempt", "/v1/checkpoint/mark-boot-attempt",
		"Count one boot attempt against the checkpoint retry budget", "boot attempt recorded")
}

func simplePost(name, path, usage, message string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(c *cli.Context) error {
			if err := newClient(c).Post(commandContext(c), path, nil, nil); err != nil {
				return err
			}
			return acknowledge(c, name, message)
		},
	}
}

// AbortCommand discards the checkpoint by restarting the machine.
func AbortCommand() *cli.Command {
	return &cli.Command{
		Name:  "abort",
		Usage: "Abort the checkpoint; the machine restarts and rolls back",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "reason",
				Usage: "Restart reason recorded by the daemon",
			},
		},
		Action: func(c *cli.Context) error {
			req := handler.AbortRequest{Reason: c.String("reason")}
			if err := newClient(c).Post(commandContext(c), "/v1/checkpoint/abort", req, nil); err != nil {
				return err
			}
			return acknowledge(c, "abort", "abort requested, restarting")
		},
	}
}

// NeedsCheckpointCommand reports whether this boot runs under a checkpoint.
func NeedsCheckpointCommand() *cli.Command {
	return neededQuery("needs-checkpoint", "/v1/checkpoint/needs-checkpoint",
		"Report whether this boot runs under a checkpoint")
}

// NeedsRollbackCommand reports whether the retry budget is exhausted.
func NeedsRollbackCommand() *cli.Command {
	return neededQuery("needs-rollback", "/v1/checkpoint/needs-rollback",
		"Report whether the checkpoint must be rolled back")
}

func neededQuery(name, path, usage string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{quietFlag()},
		Action: func(c *cli.Context) error {
			var resp handler.NeededResponse
			if err := newClient(c).Get(commandContext(c), path, &resp); err != nil {
				return err
			}
			if c.Bool("quiet") {
				if !resp.Needed {
					return cli.Exit("", ExitNotNeeded)
				}
				return nil
			}
			return render(c, resp)
		},
	}
}

// RestoreCommand rolls a block device back to its checkpoint.
func RestoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Roll a block device back to its checkpoint",
		ArgsUsage: "BLOCK_DEVICE",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Restore in process without checkpointd (early boot)",
			},
		},
		Action: func(c *cli.Context) error {
			dev := c.Args().First()
			if dev == "" {
				return fmt.Errorf("block device required")
			}

			var report *bowlog.Report
			var err error
			if c.Bool("offline") {
				report, err = restoreOffline(c, dev)
			} else {
				report = &bowlog.Report{}
				req := handler.RestoreRequest{BlockDevice: dev}
				err = newClient(c).Post(commandContext(c), "/v1/checkpoint/restore", req, report)
			}
			if err != nil {
				return err
			}
			return render(c, report)
		},
	}
}
