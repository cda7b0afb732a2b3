// Command feedagentd runs the feed agent as a daemon: it loads the configured
// sources, refreshes them periodically and exposes metrics, health and a live
// error stream over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "feedagentd",
		Usage: "background dispatch engine for feed sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"FEEDAGENT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "override log_level from the config",
				EnvVars: []string{"FEEDAGENT_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			RunCommand(),
			RefreshCommand(),
			SourcesCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
