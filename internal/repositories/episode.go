package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/shared"
)

// EpisodeRepository is the episode ledger: the identifiers each podcast has already seen.
type EpisodeRepository struct {
	db DBTX
}

// NewEpisodeRepository creates a new EpisodeRepository with the given database connection
func NewEpisodeRepository(db DBTX) *EpisodeRepository {
	return &EpisodeRepository{db: db}
}

// Add records feedID for the podcast.
//
// Fails with [shared.ErrUnknownPodcast] when the podcast does not exist and [shared.ErrDuplicateEpisode] when the
// identifier is already recorded for it.
func (r *EpisodeRepository) Add(podcastID int64, feedID string) error {
	if feedID == "" {
		return fmt.Errorf("%w: empty episode identifier", shared.ErrInvalidInput)
	}

	_, err := r.db.Exec(
		`INSERT INTO episodes (feed_id, podcast_id, created_at) VALUES (?, ?, ?)`,
		feedID, podcastID, time.Now().UTC(),
	)
	switch {
	case err == nil:
		return nil
	case shared.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: id %d", shared.ErrUnknownPodcast, podcastID)
	case shared.IsUniqueViolation(err):
		return fmt.Errorf("%w: %s", shared.ErrDuplicateEpisode, feedID)
	default:
		return fmt.Errorf("failed to insert episode: %w", err)
	}
}

// AddByURL records feedID for the podcast subscribed at url.
func (r *EpisodeRepository) AddByURL(url, feedID string) error {
	return runInTx(r.db, func(q DBTX) error {
		podcast, err := NewPodcastRepository(q).GetByURL(url)
		if err != nil {
			return err
		}
		return NewEpisodeRepository(q).Add(podcast.ID, feedID)
	})
}

// AddMany records ids for the podcast in one transaction. Identifiers already recorded are tolerated and counted
// as duplicates; any other failure rolls the batch back.
func (r *EpisodeRepository) AddMany(podcastID int64, ids []string) (inserted, duplicates int, err error) {
	err = runInTx(r.db, func(q DBTX) error {
		scoped := NewEpisodeRepository(q)
		inserted, duplicates = 0, 0
		for _, id := range ids {
			err := scoped.Add(podcastID, id)
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, shared.ErrDuplicateEpisode):
				duplicates++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, duplicates, nil
}

// KnownIDs returns every identifier recorded for the podcast, including ones committed earlier in the same run.
func (r *EpisodeRepository) KnownIDs(podcastID int64) (*models.EpisodeSet, error) {
	rows, err := r.db.Query(`SELECT feed_id FROM episodes WHERE podcast_id = ?`, podcastID)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	set := models.NewEpisodeSet()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		set.Add(id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return set, nil
}

// Count returns the number of identifiers recorded for the podcast.
func (r *EpisodeRepository) Count(podcastID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM episodes WHERE podcast_id = ?`, podcastID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count episodes: %w", err)
	}
	return n, nil
}
