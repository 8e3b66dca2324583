package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/podd/internal/formatter"
	"github.com/desertthunder/podd/internal/shared"
	"github.com/desertthunder/podd/internal/tasks"
	"github.com/urfave/cli/v3"
)

const sinceLayout = "2006-01-02"

// Download runs one refresh over every subscription and prints a per-podcast summary.
//
// Only store failures and a held run lock fail the command; feed and download failures show up in the summary.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	since, err := parseSince(cmd.String("since"))
	if err != nil {
		return err
	}

	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	lock, err := r.acquireLock()
	if err != nil {
		return err
	}
	defer lock.Release()

	opts := r.refreshOpts()
	opts.DryRun = cmd.Bool("dry-run")
	opts.Since = since

	progress, done := r.printProgress()
	result, err := engine.Refresh(ctx, progress, opts)
	close(progress)
	<-done

	if result != nil && len(result.Podcasts) > 0 {
		r.writePlain("\n%s\n", formatter.SummaryTable(summaryRows(result, opts.DryRun)))
	}
	if err != nil {
		return err
	}

	if !opts.DryRun && result.Downloaded == 0 && result.Failed == 0 {
		r.writePlain("No new episodes.\n")
	}
	return nil
}

// printProgress starts a goroutine echoing progress messages. Close the returned channel, then wait on done.
func (r *Runner) printProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case tasks.FetchFeed, tasks.Reconcile:
				r.writePlain("%s\n", update.Message)
			case tasks.Download:
				r.writePlain("   %s\n", update.Message)
			case tasks.Notify:
				r.writePlain("\n%s\n", update.Message)
			}
		}
	}()
	return progress, done
}

func summaryRows(result *tasks.RefreshResult, dryRun bool) []formatter.SummaryRow {
	rows := make([]formatter.SummaryRow, 0, len(result.Podcasts))
	for _, run := range result.Podcasts {
		row := formatter.SummaryRow{Podcast: run.Podcast.Name}
		if run.Reconcile != nil {
			row.New = run.Reconcile.Persisted
			row.Offered = len(run.Reconcile.Intents)
		}
		for _, out := range run.Downloads {
			if out.Err != nil {
				row.Failed++
			} else {
				row.Downloaded++
			}
		}

		switch {
		case run.Err != nil:
			row.Status = truncate(run.Err.Error(), 48)
		case dryRun:
			row.Status = "dry run"
		case row.Failed > 0:
			row.Status = fmt.Sprintf("%d failed", row.Failed)
		default:
			row.Status = "ok"
		}
		rows = append(rows, row)
	}
	return rows
}

// parseSince accepts an empty string (no cutoff) or a YYYY-MM-DD date in local time.
func parseSince(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(sinceLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --since must be YYYY-MM-DD, got %q", shared.ErrInvalidOption, value)
	}
	return t, nil
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
