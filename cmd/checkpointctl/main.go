package main

import (
	"errors"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kshms10904/platform-system-vold/internal/cli/command"
)

func main() {
	app := command.App()
	app.ExitErrHandler = func(*cli.Context, error) {}

	if err := app.Run(os.Args); err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			if msg := exit.Error(); msg != "" {
				command.PrintError("%s", msg)
			}
			os.Exit(exit.ExitCode())
		}
		command.PrintError("%v", err)
		os.Exit(1)
	}
}
