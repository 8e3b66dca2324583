package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/podd/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, then initializes the database and download directory.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.resolveConfigPath(cmd)

	if _, err := os.Stat(configPath); err != nil {
		r.log().Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created config file %s\n", configPath)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(config.Downloads.Directory, 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	r.log().Info("initializing database", "path", config.Database.Path)
	store, err := r.openStore(cmd)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	versions, err := shared.AppliedVersions(store.DB())
	if err != nil {
		return err
	}

	r.writePlain("✓ Database ready at %s (schema version %d)\n", config.Database.Path, versions[len(versions)-1])
	r.writePlain("Downloads go to %s\n", config.Downloads.Directory)
	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'podd add <feed url>' to subscribe\n")
	r.writePlain("2. Run 'podd download' to fetch new episodes\n")
	return nil
}

// MigrateStatus prints applied migration versions.
func (r *Runner) MigrateStatus(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore(cmd)
	if err != nil {
		return err
	}

	versions, err := shared.AppliedVersions(store.DB())
	if err != nil {
		return err
	}
	for _, v := range versions {
		r.writePlain("%04d applied\n", v)
	}
	return nil
}

// MigrateRollback reverts the most recent migration. The store is opened without initialization so the
// rollback is not immediately re-applied.
func (r *Runner) MigrateRollback(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	before, err := shared.AppliedVersions(db)
	if err != nil {
		return err
	}
	if err := shared.RollbackMigration(db); err != nil {
		return err
	}

	r.log().Info("rolled back migration", "version", before[len(before)-1])
	r.writePlain("✓ Rolled back migration %04d\n", before[len(before)-1])
	return nil
}
