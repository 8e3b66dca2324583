package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/notifications"
	"github.com/desertthunder/podd/internal/repositories"
	"github.com/desertthunder/podd/internal/services"
	"github.com/desertthunder/podd/internal/shared"
)

var baseDate = time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)

// setupTestStore creates an in-memory store whose download directory is a fresh temp dir
func setupTestStore(t *testing.T, newOnly bool) *repositories.Store {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	store := repositories.NewStore(db)
	if err := store.Initialize(t.TempDir()); err != nil {
		db.Close()
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Settings.Set(models.OptionNewOnly, fmt.Sprint(newOnly)); err != nil {
		t.Fatalf("failed to set new_only: %v", err)
	}
	return store
}

func createPodcast(t *testing.T, store *repositories.Store, name string) *models.Podcast {
	t.Helper()

	p := &models.Podcast{Name: name, URL: "https://feeds.example.com/" + name, Directory: filepath.Join(t.TempDir(), name)}
	if err := store.Podcasts.Create(p); err != nil {
		t.Fatalf("failed to create podcast: %v", err)
	}
	return p
}

// entries builds oldest-first entries dated one day apart, starting at baseDate
func entries(ids ...string) []models.Entry {
	out := make([]models.Entry, len(ids))
	for i, id := range ids {
		out[i] = models.Entry{
			ID:           id,
			Title:        "Episode " + id,
			Published:    baseDate.AddDate(0, 0, i),
			EnclosureURL: "https://cdn.example.com/" + id + ".mp3",
		}
	}
	return out
}

func feedOf(title string, es []models.Entry) *models.Feed {
	return &models.Feed{Title: title, Entries: es}
}

func intentIDs(intents []models.DownloadIntent) []string {
	ids := make([]string, len(intents))
	for i, in := range intents {
		ids[i] = in.EntryID
	}
	return ids
}

type fakeFetcher struct {
	mu    sync.Mutex
	feeds map[string]*models.Feed
	errs  map[string]error
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{feeds: map[string]*models.Feed{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeFetcher) set(url string, feed *models.Feed) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds[url] = feed
}

func (f *fakeFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*models.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if feed, ok := f.feeds[url]; ok {
		return feed, nil
	}
	return nil, fmt.Errorf("%w: no feed registered for %s", shared.ErrFeedUnreachable, url)
}

type fakeDownloader struct {
	mu        sync.Mutex
	failures  map[string]error
	got       []models.DownloadIntent
	delay     time.Duration
	active    atomic.Int32
	maxActive atomic.Int32
}

func (d *fakeDownloader) Download(ctx context.Context, intent models.DownloadIntent) (*services.DownloadResult, error) {
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		m := d.maxActive.Load()
		if n <= m || d.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}

	d.mu.Lock()
	d.got = append(d.got, intent)
	err := d.failures[intent.EntryID]
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &services.DownloadResult{Path: filepath.Join(intent.Directory, intent.EntryID+".mp3"), Bytes: 1}, nil
}

type fakeTagger struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeTagger) Tag(path string, intent models.DownloadIntent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.err == nil, f.err
}

type fakeNotifier struct {
	reports []notifications.Report
	err     error
}

func (f *fakeNotifier) NotifyDownloads(ctx context.Context, report notifications.Report) error {
	f.reports = append(f.reports, report)
	return f.err
}
