package command

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/kshms10904/platform-system-vold/internal/core/domain"
	"github.com/kshms10904/platform-system-vold/internal/infra/buildinfo"
	"github.com/kshms10904/platform-system-vold/internal/server/httpserver/handler"
)

// StatusCommand shows the checkpoint state held by the daemon.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show checkpoint status",
		Action: func(c *cli.Context) error {
			var st domain.Status
			if err := newClient(c).Get(commandContext(c), "/v1/checkpoint/status", &st); err != nil {
				return err
			}
			return render(c, st)
		},
	}
}

// HistoryCommand lists journaled lifecycle events.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent checkpoint events, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of events",
				Value:   20,
			},
		},
		Action: func(c *cli.Context) error {
			limit := c.Int("limit")
			if limit <= 0 {
				return fmt.Errorf("limit must be positive")
			}
			query := url.Values{"limit": {strconv.Itoa(limit)}}

			var resp handler.HistoryResponse
			if err := newClient(c).Get(commandContext(c), "/v1/history?"+query.Encode(), &resp); err != nil {
				return err
			}
			return render(c, resp.Events)
		},
	}
}

// HealthCommand checks that the daemon answers.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that checkpointd is serving",
		Action: func(c *cli.Context) error {
			client := newClient(c)
			var resp map[string]string
			if err := client.Get(commandContext(c), "/health", &resp); err != nil {
				return err
			}
			return acknowledge(c, "health", fmt.Sprintf("checkpointd at %s is %s", client.Target(), resp["status"]))
		},
	}
}

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			return render(c, buildinfo.Get())
		},
	}
}
