package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kshms10904/platform-system-vold/internal/cli/connection"
	"github.com/kshms10904/platform-system-vold/internal/cli/output"
	"github.com/kshms10904/platform-system-vold/internal/infra/buildinfo"
	"github.com/kshms10904/platform-system-vold/internal/server/config"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "checkpointctl",
		Usage:                "Manage block-device checkpoints",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			SupportedCommand(),
			StartCommand(),
			PrepareCommand(),
			CommitCommand(),
			AbortCommand(),
			NeedsCheckpointCommand(),
			NeedsRollbackCommand(),
			MarkBootAttemptCommand(),
			RestoreCommand(),
			StatusCommand(),
			HistoryCommand(),
			HealthCommand(),
			InspectCommand(),
			BootCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "socket",
			Aliases: []string{"s"},
			Usage:   "checkpointd socket path or http(s) URL",
			EnvVars: []string{"CHECKPOINTCTL_SOCKET"},
			Value:   config.DefaultLocalSocket,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "checkpointd configuration file for offline commands",
			EnvVars: []string{"CHECKPOINTD_CONFIG"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Socket  string
	Output  output.Format
	Wide    bool
	Config  string
	Timeout time.Duration
}

// ParseGlobalFlags extracts global flags from context. The output format
// has already been validated by the Before hook.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Socket:  c.String("socket"),
		Output:  format,
		Wide:    c.Bool("wide"),
		Config:  c.String("config"),
		Timeout: c.Duration("timeout"),
	}
}

// newClient creates a daemon client from the global flags.
func newClient(c *cli.Context) *connection.Client {
	flags := ParseGlobalFlags(c)
	return connection.New(flags.Socket,
		connection.WithTimeout(flags.Timeout),
		connection.WithUserAgent("checkpointctl/"+buildinfo.Version),
	)
}

// commandContext returns the context of the running command.
func commandContext(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

func stdout(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	return output.NewFormatter(flags.Output, flags.Wide).Format(stdout(c), data)
}

// ackResult is printed by operations that return no data.
type ackResult struct {
	Operation string `json:"operation"`
	Result    string `json:"result"`
}

// acknowledge reports a successful operation: a sentence for humans, a
// small document for json and yaml.
func acknowledge(c *cli.Context, op, message string) error {
	if ParseGlobalFlags(c).Output == output.FormatTable {
		_, err := fmt.Fprintln(stdout(c), message)
		return err
	}
	return render(c, ackResult{Operation: op, Result: "ok"})
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
