// package repositories provides persistence layer implementations for podcasts, episodes and settings.
package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/podd/internal/shared"
)

// DBTX is satisfied by both [sql.DB] and [sql.Tx], so repositories run unchanged inside a transaction.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

type txBeginner interface {
	Begin() (*sql.Tx, error)
}

// runInTx calls fn inside a new transaction when db can start one, otherwise it reuses the caller's transaction.
//
// The pool holds a single connection, so code running under a transaction must use the handle passed to fn.
func runInTx(db DBTX, fn func(DBTX) error) error {
	b, ok := db.(txBeginner)
	if !ok {
		return fn(db)
	}

	tx, err := b.Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Store bundles the repositories over one database handle.
type Store struct {
	db       *sql.DB
	q        DBTX
	Podcasts *PodcastRepository
	Episodes *EpisodeRepository
	Settings *SettingsRepository
}

// NewStore wraps an open database. Call [Store.Initialize] before use.
func NewStore(db *sql.DB) *Store {
	s := &Store{db: db, q: db}
	s.bind()
	return s
}

// Open opens the database at path and initializes it with defaultDir as the seeded download directory.
func Open(path, defaultDir string) (*Store, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}

	s := NewStore(db)
	if err := s.Initialize(defaultDir); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Initialize applies pending migrations and seeds the settings row. Running it again leaves existing data alone.
func (s *Store) Initialize(defaultDir string) error {
	if err := shared.RunMigrations(s.db); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return s.Settings.Seed(defaultDir)
}

// WithTx runs fn with a Store whose repositories share one transaction. Any error rolls the whole unit back.
// Called on a Store that is already transaction-scoped, it joins the outer transaction.
func (s *Store) WithTx(fn func(tx *Store) error) error {
	return runInTx(s.q, func(q DBTX) error {
		scoped := &Store{db: s.db, q: q}
		scoped.bind()
		return fn(scoped)
	})
}

// DB exposes the underlying handle for migration commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) bind() {
	s.Podcasts = NewPodcastRepository(s.q)
	s.Episodes = NewEpisodeRepository(s.q)
	s.Settings = NewSettingsRepository(s.q)
}
