package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	runner := NewRunner(RunnerOpts{})

	app := &cli.Command{
		Name:    "podd",
		Usage:   "Subscribe to podcasts and download new episodes",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("PODD_CONFIG"),
			},
		},
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		runner.log().Errorf("application error: %v", err)
	}
	runner.Close()

	if err != nil {
		os.Exit(1)
	}
}
