package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/trade-sampler/internal/artifact"
	"github.com/rxtech-lab/trade-sampler/internal/version"
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "sampler",
		Usage:   "Sample the real-time trade stream and average the observed prices",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "cache",
				Usage: "Sample trades with one or more clients and cache each client's data",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "times",
						Aliases:  []string{"t"},
						Usage:    "Seconds each client collects trades",
						Required: false,
					},
					&cli.IntFlag{
						Name:     "client",
						Aliases:  []string{"c"},
						Usage:    "Number of concurrent clients",
						Value:    1,
						Required: false,
					},
					&cli.StringFlag{
						Name:     "config",
						Usage:    "Path to a YAML config file",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Directory the client artifacts are written to",
						Value:    ".",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "writer",
						Aliases:  []string{"w"},
						Usage:    fmt.Sprintf("Artifact format (%s or %s)", artifact.FormatJSON, artifact.FormatDuckDB),
						Value:    string(artifact.FormatJSON),
						Required: false,
					},
					&cli.StringFlag{
						Name:     "symbol",
						Usage:    "Contract whose trades are sampled",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "endpoint",
						Usage:    "Websocket endpoint of the trade stream",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "log-level",
						Usage:    "Log level (debug, info, warn, error)",
						Required: false,
					},
					&cli.BoolFlag{
						Name:     "fail-fast",
						Usage:    "Stop waiting for the other clients as soon as one fails",
						Required: false,
					},
				},
				Action: cacheAction,
			},
			{
				Name:  "read",
				Usage: "Print the cached client artifacts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Directory the client artifacts were written to",
						Value:    ".",
						Required: false,
					},
				},
				Action: readAction,
			},
			{
				Name:  "view",
				Usage: "Browse the cached client artifacts interactively",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Directory the client artifacts were written to",
						Value:    ".",
						Required: false,
					},
				},
				Action: viewAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the config file",
				Action: schemaAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp().Run(ctx, os.Args)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
