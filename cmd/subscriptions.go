package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/podd/internal/formatter"
	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/shared"
	"github.com/desertthunder/podd/internal/tasks"
	"github.com/desertthunder/podd/internal/ui"
	"github.com/urfave/cli/v3"
)

// Add subscribes to every URL given as an argument or listed in --file, then downloads the back catalog
// of each new podcast unless new-only mode is on or --skip-download is set.
//
// Feeds that fail are reported and skipped; they do not fail the command.
func (r *Runner) Add(ctx context.Context, cmd *cli.Command) error {
	urls := cmd.Args().Slice()
	if file := cmd.String("file"); file != "" {
		fromFile, err := readURLFile(file)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("%w: at least one feed URL (or --file) is required", shared.ErrMissingArgument)
	}

	opts := tasks.AddOpts{Directory: cmd.String("directory")}
	if opts.Directory != "" {
		dir, err := shared.ExpandPath(opts.Directory)
		if err != nil {
			return err
		}
		opts.Directory = dir
	}

	manager, err := r.manager(cmd)
	if err != nil {
		return err
	}

	var intents []models.DownloadIntent
	for _, res := range manager.Add(ctx, opts, urls...) {
		if res.Err != nil {
			r.writePlain("%s %s: %v\n", ui.Failure("✗"), res.URL, res.Err)
			continue
		}
		r.writePlain("%s Subscribed to %s (%s)\n", ui.Success("✓"), res.Podcast.Name, res.Podcast.Directory)
		if len(res.Intents) > 0 {
			r.writePlain("  %d episode(s) in the back catalog\n", len(res.Intents))
		}
		intents = append(intents, res.Intents...)
	}

	if len(intents) == 0 || cmd.Bool("skip-download") {
		return nil
	}
	return r.downloadIntents(ctx, cmd, intents)
}

// downloadIntents downloads intents under the run lock and prints a one-line result per episode.
func (r *Runner) downloadIntents(ctx context.Context, cmd *cli.Command, intents []models.DownloadIntent) error {
	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	lock, err := r.acquireLock()
	if err != nil {
		return err
	}
	defer lock.Release()

	progress, done := r.printProgress()
	outcomes := engine.DownloadIntents(ctx, progress, intents, r.refreshOpts())
	close(progress)
	<-done

	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
		}
	}
	r.writePlainln("Downloaded %d of %d episode(s)", len(outcomes)-failed, len(outcomes))
	return nil
}

// Remove unsubscribes the podcast named by the argument. Without an argument it offers the interactive picker
// on a terminal, or a numbered prompt otherwise.
func (r *Runner) Remove(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.manager(cmd)
	if err != nil {
		return err
	}

	if selector := strings.TrimSpace(cmd.Args().First()); selector != "" {
		removed, err := manager.Remove(selector)
		if err != nil {
			return err
		}
		r.writePlain("%s Removed %s\n", ui.Success("✓"), removed.Name)
		return nil
	}

	if r.terminal() {
		return r.runPicker(manager)
	}
	return r.promptRemoval(manager)
}

// promptRemoval prints a numbered list and reads one line of input naming the podcast to remove.
func (r *Runner) promptRemoval(manager *tasks.SubscriptionManager) error {
	podcasts, err := manager.Subscriptions()
	if err != nil {
		return err
	}
	if len(podcasts) == 0 {
		r.writePlain("No subscriptions.\n")
		return nil
	}

	r.output.Write(formatter.SubscriptionsText(podcasts))
	r.writePlain("Number to remove (anything else cancels): ")

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read input: %w", err)
	}

	removed, err := manager.RemoveByInput(podcasts, line)
	if err != nil {
		return err
	}
	if removed == nil {
		r.writePlain("\nNothing removed.\n")
		return nil
	}
	r.writePlain("\n%s Removed %s\n", ui.Success("✓"), removed.Name)
	return nil
}

// List prints subscriptions in the requested format.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.manager(cmd)
	if err != nil {
		return err
	}

	podcasts, err := manager.Subscriptions()
	if err != nil {
		return err
	}

	format := strings.ToLower(cmd.String("format"))
	if format == "json" {
		return r.writeJSON(podcasts, cmd.Bool("pretty"))
	}
	if len(podcasts) == 0 && format != formatter.FormatCSV {
		return r.writePlain("No subscriptions. Add one with 'podd add <feed url>'.\n")
	}

	out, err := formatter.Subscriptions(podcasts, format)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidOption, err)
	}
	if format == formatter.FormatTable || format == "" {
		return r.writePlain("%s\n", out)
	}
	return r.writePlain("%s", out)
}

// Options prints the global settings.
func (r *Runner) Options(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.manager(cmd)
	if err != nil {
		return err
	}

	settings, err := manager.Options()
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", formatter.OptionsTable(settings))
}

// SetCatalog switches between downloading the back catalog and only new episodes on subscribe.
func (r *Runner) SetCatalog(ctx context.Context, cmd *cli.Command) error {
	mode := cmd.Args().First()
	if mode == "" {
		return fmt.Errorf("%w: catalog mode (%s or %s)", shared.ErrMissingArgument, models.CatalogAll, models.CatalogNew)
	}

	manager, err := r.manager(cmd)
	if err != nil {
		return err
	}
	if err := manager.SetCatalogOption(mode); err != nil {
		return err
	}
	return r.writePlain("%s catalog set to %s\n", ui.Success("✓"), strings.ToLower(mode))
}

// SetDirectory changes the base download directory, or one podcast's directory when --podcast is given.
func (r *Runner) SetDirectory(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("%w: directory path", shared.ErrMissingArgument)
	}
	path, err := shared.ExpandPath(path)
	if err != nil {
		return err
	}

	manager, err := r.manager(cmd)
	if err != nil {
		return err
	}

	if selector := cmd.String("podcast"); selector != "" {
		podcast, err := manager.SetPodcastDirectory(selector, path)
		if err != nil {
			return err
		}
		return r.writePlain("%s %s now downloads to %s\n", ui.Success("✓"), podcast.Name, path)
	}

	if err := manager.SetDirectoryOption(path); err != nil {
		return err
	}
	return r.writePlain("%s download directory set to %s\n", ui.Success("✓"), path)
}

// readURLFile returns the non-blank lines of path that do not start with "#".
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open URL file: %v", shared.ErrInvalidInput, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL file: %w", err)
	}
	return urls, nil
}
