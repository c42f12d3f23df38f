package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/machinemessiah/tagify-sub000/internal/shared"
)

// Setup creates the config file when missing, then initializes the database
// and applies every migration.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.config = config
	r.configPath = configPath

	r.writePlain("✓ Setup complete\n")
	r.writePlain("  Config:   %s\n", configPath)
	r.writePlain("  Database: %s\n\n", config.Database.Path)
	r.writePlain("Add your Spotify client_id and client_secret to %s,\n", configPath)
	r.writePlain("then run 'tagify auth login'.\n")

	return nil
}

// DbMigrate applies pending migrations.
func (r *Runner) DbMigrate(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.writePlain("✓ Migrations applied\n")
	return nil
}

// DbRollback rolls back the most recently applied migration.
func (r *Runner) DbRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	r.writePlain("✓ Rolled back one migration\n")
	return nil
}

// DbStatus lists applied and pending migrations.
func (r *Runner) DbStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	applied, pending, err := shared.MigrationStatus(db)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}

	r.writePlain("Database: %s\n\n", r.config.Database.Path)
	r.writePlain("Applied (%d):\n", len(applied))
	for _, version := range applied {
		r.writePlain("  ✓ %04d\n", version)
	}
	r.writePlain("Pending (%d):\n", len(pending))
	for _, version := range pending {
		r.writePlain("  • %04d\n", version)
	}

	if len(pending) > 0 {
		r.writePlainln("Run 'tagify db migrate' to apply pending migrations.")
	}

	return nil
}
