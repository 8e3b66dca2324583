// package tasks implements the subscription and reconciliation operations behind the CLI.
//
// The Reconciler computes per-podcast episode deltas, the SubscriptionManager edits subscriptions and options,
// and the RefreshEngine drives a full fetch, reconcile, download and notify cycle.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"slices"
	"time"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/repositories"
)

// ReconcileOpts tunes a single reconciliation.
type ReconcileOpts struct {
	// Since, when non-zero, withholds unseen entries published before it. They are still recorded.
	Since time.Time
}

// ReconcileResult describes what one reconciliation did.
type ReconcileResult struct {
	Podcast   *models.Podcast
	Initial   bool                    // no identifiers were recorded before this run
	Persisted int                     // unseen identifiers written to the ledger
	Skipped   int                     // entries without an identifier
	Withheld  int                     // unseen entries older than the Since cutoff
	Intents   []models.DownloadIntent // oldest first
}

// Reconciler merges fetched feeds into the episode ledger.
type Reconciler struct {
	store *repositories.Store
	now   func() time.Time
}

// NewReconciler creates a Reconciler over store.
func NewReconciler(store *repositories.Store) *Reconciler {
	return &Reconciler{store: store, now: time.Now}
}

// Reconcile records every unseen entry of feed for podcast and returns the entries eligible for download.
//
// Identifiers are committed before the intents are returned, so a failed download is never retried by a later
// run.
func (r *Reconciler) Reconcile(podcast *models.Podcast, feed *models.Feed, opts ReconcileOpts) (*ReconcileResult, error) {
	var res *ReconcileResult
	err := r.store.WithTx(func(tx *repositories.Store) error {
		var err error
		res, err = r.reconcile(tx, podcast, feed, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Reconciler) reconcile(tx *repositories.Store, podcast *models.Podcast, feed *models.Feed, opts ReconcileOpts) (*ReconcileResult, error) {
	settings, err := tx.Settings.Get()
	if err != nil {
		return nil, err
	}

	known, err := tx.Episodes.KnownIDs(podcast.ID)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{Podcast: podcast, Initial: known.Len() == 0}

	var unseen []models.Entry
	batch := models.NewEpisodeSet()
	for _, entry := range NormalizeOrder(feed.Entries) {
		if entry.ID == "" {
			res.Skipped++
			continue
		}
		if known.Has(entry.ID) || !batch.Add(entry.ID) {
			continue
		}
		unseen = append(unseen, entry)
	}

	ids := make([]string, len(unseen))
	for i, e := range unseen {
		ids[i] = e.ID
	}
	inserted, _, err := tx.Episodes.AddMany(podcast.ID, ids)
	if err != nil {
		return nil, err
	}
	res.Persisted = inserted

	if err := tx.Podcasts.TouchLastSync(podcast.ID, r.now()); err != nil {
		return nil, err
	}

	if res.Initial && settings.NewOnly {
		return res, nil
	}

	for _, e := range unseen {
		if !opts.Since.IsZero() && !e.Published.IsZero() && e.Published.Before(opts.Since) {
			res.Withheld++
			continue
		}
		res.Intents = append(res.Intents, newIntent(podcast, e))
	}
	return res, nil
}

// NormalizeOrder returns entries oldest-first. A feed is taken to be newest-first when its first entry is dated
// after its last; entries without dates keep their order.
func NormalizeOrder(entries []models.Entry) []models.Entry {
	out := slices.Clone(entries)
	if len(out) < 2 {
		return out
	}

	first, last := out[0].Published, out[len(out)-1].Published
	if !first.IsZero() && !last.IsZero() && first.After(last) {
		slices.Reverse(out)
	}
	return out
}

func newIntent(p *models.Podcast, e models.Entry) models.DownloadIntent {
	return models.DownloadIntent{
		PodcastID:     p.ID,
		PodcastName:   p.Name,
		Directory:     p.Directory,
		EntryID:       e.ID,
		Title:         e.Title,
		Published:     e.Published,
		EnclosureURL:  e.EnclosureURL,
		EnclosureType: e.EnclosureType,
	}
}
