// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/podd/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand creates the config file from the template and initializes the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the database",
		Action: r.action(r.Setup),
	}
}

// addCommand subscribes to one or more feeds.
func addCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Aliases:   []string{"subscribe"},
		Usage:     "Subscribe to podcast feeds",
		ArgsUsage: "URL...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read feed URLs from a file, one per line",
			},
			&cli.StringFlag{
				Name:    "directory",
				Aliases: []string{"d"},
				Usage:   "Download directory for the new podcast(s)",
			},
			&cli.BoolFlag{
				Name:  "skip-download",
				Usage: "Record the back catalog without downloading it",
			},
		},
		Action: r.action(r.Add),
	}
}

// removeCommand unsubscribes from a podcast.
func removeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm", "unsubscribe"},
		Usage:     "Unsubscribe from a podcast by URL or name, or pick one interactively",
		ArgsUsage: "[SELECTOR]",
		Action:    r.action(r.Remove),
	}
}

// listCommand prints subscriptions.
func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List subscribed podcasts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: table, csv, plain or json",
				Value: formatter.FormatTable,
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.action(r.List),
	}
}

// optionsCommand prints the global settings.
func optionsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "options",
		Usage:  "Show global options",
		Action: r.action(r.Options),
	}
}

// setCommand changes global or per-podcast options.
func setCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "set",
		Usage: "Change options",
		Commands: []*cli.Command{
			{
				Name:      "catalog",
				Usage:     "Download the whole back catalog (all) or only new episodes (new) on subscribe",
				ArgsUsage: "all|new",
				Action:    r.action(r.SetCatalog),
			},
			{
				Name:      "directory",
				Aliases:   []string{"dir"},
				Usage:     "Set the base download directory, or one podcast's directory with --podcast",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "podcast",
						Aliases: []string{"p"},
						Usage:   "Feed URL or name of the podcast to change",
					},
				},
				Action: r.action(r.SetDirectory),
			},
		},
	}
}

// downloadCommand refreshes every subscription and downloads new episodes.
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "download",
		Aliases: []string{"dl", "refresh"},
		Usage:   "Check every feed and download new episodes",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Record new episodes without downloading them",
			},
			&cli.StringFlag{
				Name:  "since",
				Usage: "Only download episodes published on or after this date (YYYY-MM-DD)",
			},
		},
		Action: r.action(r.Download),
	}
}

// migrateCommand manages the database schema.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Database schema management",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "List applied migration versions",
				Action: r.action(r.MigrateStatus),
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recently applied migration",
				Action: r.action(r.MigrateRollback),
			},
		},
	}
}
