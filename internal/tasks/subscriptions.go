package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/repositories"
	"github.com/desertthunder/podd/internal/services"
	"github.com/desertthunder/podd/internal/shared"
)

// AddOpts configures [SubscriptionManager.Add].
type AddOpts struct {
	// Directory overrides the download directory. Empty means <download_directory>/<feed title>.
	Directory string
}

// AddResult reports the outcome for one URL passed to [SubscriptionManager.Add].
type AddResult struct {
	URL     string
	Podcast *models.Podcast
	Intents []models.DownloadIntent // back catalog to download when new_only is off
	Err     error
}

// SubscriptionManager adds, removes and configures subscriptions.
type SubscriptionManager struct {
	store      *repositories.Store
	fetcher    services.Fetcher
	reconciler *Reconciler
	logger     *log.Logger
}

// NewSubscriptionManager creates a SubscriptionManager. A nil logger discards output.
func NewSubscriptionManager(store *repositories.Store, fetcher services.Fetcher, logger *log.Logger) *SubscriptionManager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SubscriptionManager{
		store:      store,
		fetcher:    fetcher,
		reconciler: NewReconciler(store),
		logger:     logger,
	}
}

// Add subscribes to each URL independently. A failure for one URL is reported in its result and the rest continue.
func (m *SubscriptionManager) Add(ctx context.Context, opts AddOpts, urls ...string) []AddResult {
	results := make([]AddResult, 0, len(urls))
	for _, url := range urls {
		res := m.addOne(ctx, opts, strings.TrimSpace(url))
		if res.Err != nil {
			m.logger.Warn("subscription failed", "op", "add", "url", res.URL, "error", res.Err)
		} else {
			m.logger.Info("subscribed", "op", "add", "url", res.URL, "name", res.Podcast.Name, "intents", len(res.Intents))
		}
		results = append(results, res)
	}
	return results
}

func (m *SubscriptionManager) addOne(ctx context.Context, opts AddOpts, url string) AddResult {
	res := AddResult{URL: url}
	if url == "" {
		res.Err = fmt.Errorf("%w: empty feed url", shared.ErrInvalidInput)
		return res
	}

	feed, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		res.Err = err
		return res
	}
	if len(feed.Entries) == 0 {
		res.Err = fmt.Errorf("%w: %s", shared.ErrEmptyFeed, url)
		return res
	}

	name := feed.Title
	if name == "" {
		name = url
	}

	var created []string
	err = m.store.WithTx(func(tx *repositories.Store) error {
		dir := opts.Directory
		if dir == "" {
			settings, err := tx.Settings.Get()
			if err != nil {
				return err
			}
			dir = filepath.Join(settings.DownloadDirectory, shared.SanitizeFilename(name))
		}

		podcast := &models.Podcast{Name: name, URL: url, Directory: dir}
		if err := tx.Podcasts.Create(podcast); err != nil {
			return err
		}
		created = missingDirs(dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: failed to create %s: %v", shared.ErrInvalidDirectory, dir, err)
		}

		rec, err := m.reconciler.reconcile(tx, podcast, feed, ReconcileOpts{})
		if err != nil {
			return err
		}

		res.Podcast = podcast
		res.Intents = rec.Intents
		return nil
	})
	if err != nil {
		for _, d := range created {
			os.Remove(d)
		}
		res.Podcast, res.Intents = nil, nil
		res.Err = err
	}
	return res
}

// missingDirs lists dir and each ancestor that does not exist yet, deepest first.
func missingDirs(dir string) []string {
	var missing []string
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		if _, err := os.Stat(d); err == nil || !errors.Is(err, os.ErrNotExist) {
			return missing
		}
		missing = append(missing, d)
		if filepath.Dir(d) == d {
			return missing
		}
	}
}

// Remove deletes the podcast named by selector (feed URL or name) and all of its recorded episodes.
func (m *SubscriptionManager) Remove(selector string) (*models.Podcast, error) {
	removed, err := m.store.Podcasts.Delete(strings.TrimSpace(selector))
	if err != nil {
		return nil, err
	}
	m.logger.Info("unsubscribed", "op", "remove", "url", removed.URL, "name", removed.Name)
	return removed, nil
}

// SelectForRemoval picks the podcast at the 1-based index of list. Out-of-range indexes select nothing.
func SelectForRemoval(list []*models.Podcast, index int) (*models.Podcast, bool) {
	if index < 1 || index > len(list) {
		return nil, false
	}
	return list[index-1], true
}

// RemoveByInput removes the podcast chosen by a line of prompt input holding a 1-based index into list.
// Input that is not a number or is out of range removes nothing and is not an error.
func (m *SubscriptionManager) RemoveByInput(list []*models.Podcast, input string) (*models.Podcast, error) {
	index, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		m.logger.Debug("ignoring removal input", "input", input)
		return nil, nil
	}

	podcast, ok := SelectForRemoval(list, index)
	if !ok {
		m.logger.Debug("removal index out of range", "index", index, "count", len(list))
		return nil, nil
	}
	return m.Remove(podcast.URL)
}

// SetDirectoryOption sets the base download directory for new subscriptions.
func (m *SubscriptionManager) SetDirectoryOption(path string) error {
	if err := ValidateDirectory(path); err != nil {
		return err
	}
	return m.store.Settings.Set(models.OptionDownloadDirectory, path)
}

// SetPodcastDirectory overrides the download directory of one podcast.
func (m *SubscriptionManager) SetPodcastDirectory(selector, path string) (*models.Podcast, error) {
	if err := ValidateDirectory(path); err != nil {
		return nil, err
	}

	var updated *models.Podcast
	err := m.store.WithTx(func(tx *repositories.Store) error {
		podcast, err := tx.Podcasts.Resolve(strings.TrimSpace(selector))
		if err != nil {
			return err
		}
		if err := tx.Podcasts.UpdateDirectory(podcast.ID, path); err != nil {
			return err
		}
		podcast.Directory = path
		updated = podcast
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetCatalogOption maps "all" to new_only=false and "new" to new_only=true, ignoring case.
// Any other mode fails with [shared.ErrInvalidOption] and leaves the settings unchanged.
func (m *SubscriptionManager) SetCatalogOption(mode string) error {
	var value string
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case models.CatalogAll:
		value = "false"
	case models.CatalogNew:
		value = "true"
	default:
		return fmt.Errorf("%w: catalog must be %q or %q, got %q", shared.ErrInvalidOption, models.CatalogAll, models.CatalogNew, mode)
	}
	return m.store.Settings.Set(models.OptionNewOnly, value)
}

// Options returns the current global settings.
func (m *SubscriptionManager) Options() (models.Settings, error) {
	return m.store.Settings.Get()
}

// Subscriptions lists podcasts in subscription order. No subscriptions yields an empty slice.
func (m *SubscriptionManager) Subscriptions() ([]*models.Podcast, error) {
	return m.store.Podcasts.List()
}

// ValidateDirectory requires path to be an absolute, existing, readable and writable directory.
func ValidateDirectory(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %q is not an absolute path", shared.ErrInvalidDirectory, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s does not exist", shared.ErrInvalidDirectory, path)
		}
		return fmt.Errorf("%w: %v", shared.ErrInvalidDirectory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", shared.ErrInvalidDirectory, path)
	}

	if _, err := os.ReadDir(path); err != nil {
		return fmt.Errorf("%w: %s is not readable: %v", shared.ErrInvalidDirectory, path, err)
	}
	scratch, err := os.CreateTemp(path, ".podd-*")
	if err != nil {
		return fmt.Errorf("%w: %s is not writable: %v", shared.ErrInvalidDirectory, path, err)
	}
	scratch.Close()
	os.Remove(scratch.Name())
	return nil
}
