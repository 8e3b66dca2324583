package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/notifications"
	"github.com/desertthunder/podd/internal/repositories"
	"github.com/desertthunder/podd/internal/services"
	"github.com/desertthunder/podd/internal/shared"
)

// RefreshOpts contains configuration for a refresh run.
type RefreshOpts struct {
	DryRun      bool          // reconcile and record, but download nothing
	Since       time.Time     // withhold entries published before this time
	FeedTimeout time.Duration // per-feed fetch timeout (default: 30s)
	Workers     int           // concurrent downloads per podcast (default: 3)
	RateLimit   float64       // downloads started per second; 0 means unlimited
}

// PodcastRunResult is the outcome for one subscription.
type PodcastRunResult struct {
	Podcast   *models.Podcast
	Reconcile *ReconcileResult // nil when the feed could not be fetched
	Downloads []DownloadOutcome
	Err       error
}

// RefreshResult summarizes a refresh run.
type RefreshResult struct {
	RunID      string
	Podcasts   []PodcastRunResult
	Downloaded int
	Failed     int
	Report     notifications.Report
}

// RefreshEngine runs fetch, reconcile, download and notify across all subscriptions.
type RefreshEngine struct {
	store      *repositories.Store
	fetcher    services.Fetcher
	downloader services.Downloader
	tagger     services.Tagger
	notifier   notifications.Service
	reconciler *Reconciler
	logger     *log.Logger
}

// NewRefreshEngine wires the collaborators of a refresh run. tagger and notifier may be nil.
func NewRefreshEngine(
	store *repositories.Store,
	fetcher services.Fetcher,
	downloader services.Downloader,
	tagger services.Tagger,
	notifier notifications.Service,
	logger *log.Logger,
) *RefreshEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &RefreshEngine{
		store:      store,
		fetcher:    fetcher,
		downloader: downloader,
		tagger:     tagger,
		notifier:   notifier,
		reconciler: NewReconciler(store),
		logger:     logger,
	}
}

// Refresh reconciles every subscription in order and downloads the resulting intents.
//
// Per-podcast failures are logged and recorded in the result. Only store failures abort the run.
func (e *RefreshEngine) Refresh(ctx context.Context, progress chan<- ProgressUpdate, opts RefreshOpts) (*RefreshResult, error) {
	if opts.FeedTimeout <= 0 {
		opts.FeedTimeout = 30 * time.Second
	}

	result := &RefreshResult{RunID: shared.GenerateID()}
	logger := shared.WithLogger(e.logger, "run", result.RunID)
	result.Report.RunID = result.RunID
	result.Report.Started = time.Now()

	podcasts, err := e.store.Podcasts.List()
	if err != nil {
		return nil, err
	}
	logger.Info("refresh started", "podcasts", len(podcasts), "dry_run", opts.DryRun)

	for i, podcast := range podcasts {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		run := e.refreshOne(ctx, progress, logger, i+1, len(podcasts), podcast, opts)
		if run.Err != nil && !shared.IsRecoverable(run.Err) {
			return result, run.Err
		}

		for _, out := range run.Downloads {
			if out.Err != nil {
				result.Failed++
				continue
			}
			result.Downloaded++
			result.Report.Add(podcast.Name, notifications.EpisodeReport{
				Title:     out.Intent.Title,
				Published: out.Intent.Published,
				Path:      out.Result.Path,
			})
		}
		result.Podcasts = append(result.Podcasts, run)
	}
	result.Report.Finished = time.Now()

	if !result.Report.Empty() && e.notifier != nil {
		sendProgress(progress, notifyUpdate(result.Report.EpisodeCount()))
		if err := e.notifier.NotifyDownloads(ctx, result.Report); err != nil {
			logger.Warn("notification failed", "op", "notify", "error", err)
		}
	}

	logger.Info("refresh finished", "downloaded", result.Downloaded, "failed", result.Failed)
	return result, nil
}

func (e *RefreshEngine) refreshOne(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	logger *log.Logger,
	step, total int,
	podcast *models.Podcast,
	opts RefreshOpts,
) PodcastRunResult {
	run := PodcastRunResult{Podcast: podcast}
	plog := shared.WithLogger(logger, "name", podcast.Name, "url", podcast.URL)

	sendProgress(progress, fetchFeedUpdate(step, total, podcast))
	fetchCtx, cancel := context.WithTimeout(ctx, opts.FeedTimeout)
	feed, err := e.fetcher.Fetch(fetchCtx, podcast.URL)
	cancel()
	if err != nil {
		plog.Warn("feed fetch failed", "op", "fetch", "error", err)
		sendProgress(progress, fetchFailedUpdate(step, total, podcast, err))
		run.Err = err
		return run
	}

	rec, err := e.reconciler.Reconcile(podcast, feed, ReconcileOpts{Since: opts.Since})
	if err != nil {
		plog.Error("reconcile failed", "op", "reconcile", "error", err)
		run.Err = err
		return run
	}
	run.Reconcile = rec
	sendProgress(progress, reconcileUpdate(step, total, rec))
	plog.Info("reconciled", "new", rec.Persisted, "intents", len(rec.Intents), "skipped", rec.Skipped, "withheld", rec.Withheld)

	if opts.DryRun || len(rec.Intents) == 0 {
		return run
	}

	run.Downloads = e.downloadIntents(ctx, progress, logger, rec.Intents, opts)
	return run
}

// DownloadOutcome is the result of downloading and tagging one intent.
type DownloadOutcome struct {
	Intent models.DownloadIntent
	Result *services.DownloadResult
	Tagged bool
	Err    error
}

// DownloadIntents downloads intents with the pool settings in opts and tags each finished file.
// Outcomes are returned in intent order. Failures are logged and recorded, never returned.
func (e *RefreshEngine) DownloadIntents(ctx context.Context, progress chan<- ProgressUpdate, intents []models.DownloadIntent, opts RefreshOpts) []DownloadOutcome {
	return e.downloadIntents(ctx, progress, e.logger, intents, opts)
}

func (e *RefreshEngine) downloadIntents(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	logger *log.Logger,
	intents []models.DownloadIntent,
	opts RefreshOpts,
) []DownloadOutcome {
	pool := downloadPool{
		workers:   opts.Workers,
		rateLimit: opts.RateLimit,
		fn: func(ctx context.Context, intent models.DownloadIntent) DownloadOutcome {
			return e.downloadOne(ctx, logger, intent)
		},
	}

	outcomes := pool.run(ctx, intents, func(done int, out DownloadOutcome) {
		sendProgress(progress, downloadUpdate(done, len(intents), out))
	})

	for _, out := range outcomes {
		if out.Err != nil {
			logger.Warn("download failed", "op", "download", "name", out.Intent.PodcastName, "episode", out.Intent.Title, "error", out.Err)
		}
	}
	return outcomes
}

func (e *RefreshEngine) downloadOne(ctx context.Context, logger *log.Logger, intent models.DownloadIntent) DownloadOutcome {
	out := DownloadOutcome{Intent: intent}

	res, err := e.downloader.Download(ctx, intent)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res

	if e.tagger == nil || res.Reused {
		return out
	}
	tagged, err := e.tagger.Tag(res.Path, intent)
	if err != nil {
		// The file is on disk; a tagging failure does not undo the download.
		logger.Warn("tagging failed", "op", "tag", "path", res.Path, "error", err)
		return out
	}
	out.Tagged = tagged
	return out
}

// errCanceled marks intents that were never started because the run was canceled.
var errCanceled = errors.New("download canceled")

func canceledOutcome(intent models.DownloadIntent, cause error) DownloadOutcome {
	return DownloadOutcome{Intent: intent, Err: fmt.Errorf("%w: %v", errCanceled, cause)}
}
