package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/shared"
)

const podcastColumns = `id, name, url, directory, last_sync, created_at`

// PodcastRepository persists subscriptions.
type PodcastRepository struct {
	db DBTX
}

// NewPodcastRepository creates a new PodcastRepository with the given database connection
func NewPodcastRepository(db DBTX) *PodcastRepository {
	return &PodcastRepository{db: db}
}

// Create inserts a podcast and sets its ID and CreatedAt.
//
// A URL that is already subscribed fails with [shared.ErrDuplicateSubscription] and leaves the table unchanged.
func (r *PodcastRepository) Create(podcast *models.Podcast) error {
	if err := podcast.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	result, err := r.db.Exec(
		`INSERT INTO podcasts (name, url, directory, created_at) VALUES (?, ?, ?, ?)`,
		podcast.Name, podcast.URL, podcast.Directory, now,
	)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateSubscription, podcast.URL)
		}
		return fmt.Errorf("failed to insert podcast: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read podcast id: %w", err)
	}

	podcast.ID = id
	podcast.CreatedAt = now
	return nil
}

// Get retrieves a podcast by ID.
func (r *PodcastRepository) Get(id int64) (*models.Podcast, error) {
	row := r.db.QueryRow(`SELECT `+podcastColumns+` FROM podcasts WHERE id = ?`, id)
	return scanPodcast(row, fmt.Sprintf("id %d", id))
}

// GetByURL retrieves a podcast by its feed URL.
func (r *PodcastRepository) GetByURL(url string) (*models.Podcast, error) {
	row := r.db.QueryRow(`SELECT `+podcastColumns+` FROM podcasts WHERE url = ?`, url)
	return scanPodcast(row, url)
}

// Resolve finds the podcast named by selector, trying the feed URL first and then the name.
//
// A name shared by several podcasts fails with [shared.ErrAmbiguousSelector].
func (r *PodcastRepository) Resolve(selector string) (*models.Podcast, error) {
	podcast, err := r.GetByURL(selector)
	if err == nil {
		return podcast, nil
	}
	if !errors.Is(err, shared.ErrUnknownPodcast) {
		return nil, err
	}

	matches, err := r.query(`SELECT `+podcastColumns+` FROM podcasts WHERE name = ? ORDER BY id`, selector)
	if err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownPodcast, selector)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d podcasts", shared.ErrAmbiguousSelector, selector, len(matches))
	}
}

// Delete removes the podcast named by selector (URL or name) together with all of its episodes, in one transaction.
// It returns the removed podcast.
func (r *PodcastRepository) Delete(selector string) (*models.Podcast, error) {
	var removed *models.Podcast
	err := runInTx(r.db, func(q DBTX) error {
		scoped := NewPodcastRepository(q)
		podcast, err := scoped.Resolve(selector)
		if err != nil {
			return err
		}

		if _, err := q.Exec(`DELETE FROM episodes WHERE podcast_id = ?`, podcast.ID); err != nil {
			return fmt.Errorf("failed to delete episodes: %w", err)
		}
		if _, err := q.Exec(`DELETE FROM podcasts WHERE id = ?`, podcast.ID); err != nil {
			return fmt.Errorf("failed to delete podcast: %w", err)
		}

		removed = podcast
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// List returns every podcast in insertion order. An empty store yields an empty slice.
func (r *PodcastRepository) List() ([]*models.Podcast, error) {
	return r.query(`SELECT ` + podcastColumns + ` FROM podcasts ORDER BY id ASC`)
}

// UpdateDirectory changes the download directory of one podcast.
func (r *PodcastRepository) UpdateDirectory(id int64, directory string) error {
	return r.exec("update podcast directory", id, `UPDATE podcasts SET directory = ? WHERE id = ?`, directory, id)
}

// TouchLastSync records the time of the latest reconciliation.
func (r *PodcastRepository) TouchLastSync(id int64, at time.Time) error {
	return r.exec("update last sync", id, `UPDATE podcasts SET last_sync = ? WHERE id = ?`, at.UTC(), id)
}

func (r *PodcastRepository) exec(op string, id int64, query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: id %d", shared.ErrUnknownPodcast, id)
	}
	return nil
}

func (r *PodcastRepository) query(query string, args ...any) ([]*models.Podcast, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query podcasts: %w", err)
	}
	defer rows.Close()

	podcasts := []*models.Podcast{}
	for rows.Next() {
		podcast, err := scanPodcast(rows, "")
		if err != nil {
			return nil, err
		}
		podcasts = append(podcasts, podcast)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return podcasts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanPodcast scans one row into a [models.Podcast]; ref names the lookup in not-found errors.
func scanPodcast(row scanner, ref string) (*models.Podcast, error) {
	var (
		p        models.Podcast
		lastSync sql.NullTime
	)

	err := row.Scan(&p.ID, &p.Name, &p.URL, &p.Directory, &lastSync, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownPodcast, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan podcast: %w", err)
	}

	if lastSync.Valid {
		t := lastSync.Time
		p.LastSync = &t
	}
	return &p, nil
}
