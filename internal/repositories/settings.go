package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/podd/internal/models"
	"github.com/desertthunder/podd/internal/shared"
)

// SettingsRepository persists the singleton options row.
type SettingsRepository struct {
	db DBTX
}

// NewSettingsRepository creates a new SettingsRepository with the given database connection
func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Seed creates the settings row with new_only enabled and defaultDir as the download directory.
// An existing row is left untouched.
func (r *SettingsRepository) Seed(defaultDir string) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO settings (id, new_only, download_directory) VALUES (1, 1, ?)`,
		defaultDir,
	)
	if err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	return nil
}

// Get returns the current settings.
func (r *SettingsRepository) Get() (models.Settings, error) {
	var s models.Settings
	err := r.db.QueryRow(`SELECT new_only, download_directory FROM settings WHERE id = 1`).
		Scan(&s.NewOnly, &s.DownloadDirectory)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("%w: settings not initialized", shared.ErrStoreUnavailable)
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	return s, nil
}

// Set updates one option by key.
//
// new_only accepts 0, 1, true or false in any case. Unknown keys fail with [shared.ErrUnknownOption] and invalid
// values with [shared.ErrInvalidOption]; neither changes the row.
func (r *SettingsRepository) Set(key, value string) error {
	switch key {
	case models.OptionNewOnly:
		b, err := ParseNewOnly(value)
		if err != nil {
			return err
		}
		return r.update(`UPDATE settings SET new_only = ? WHERE id = 1`, b)
	case models.OptionDownloadDirectory:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: download_directory must not be empty", shared.ErrInvalidOption)
		}
		return r.update(`UPDATE settings SET download_directory = ? WHERE id = 1`, value)
	default:
		return fmt.Errorf("%w: %q", shared.ErrUnknownOption, key)
	}
}

// ParseNewOnly coerces the accepted textual forms of the new_only option.
func ParseNewOnly(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: new_only must be 0, 1, true or false, got %q", shared.ErrInvalidOption, value)
	}
}

func (r *SettingsRepository) update(query string, arg any) error {
	result, err := r.db.Exec(query, arg)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: settings not initialized", shared.ErrStoreUnavailable)
	}
	return nil
}
