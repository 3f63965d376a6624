package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// runMigrations runs all Bun migrations
func runMigrations(ctx context.Context, db *bun.DB) error {
	// Create a simple migrations tracking table
	_, err := db.NewCreateTable().
		Model((*AppliedMigration)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Check which migrations have been applied
	var applied []AppliedMigration
	if err := db.NewSelect().Model(&applied).Scan(ctx); err != nil {
		return fmt.Errorf("failed to check applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	// Run migrations in order
	migrations := []struct {
		version string
		name    string
		up      func(context.Context, *bun.DB) error
	}{
		{"001", "create_notes_table", init001CreateNotesTable},
	}

	for _, m := range migrations {
		if appliedMap[m.version] {
			continue
		}

		Logger.Info("Running migration", "version", m.version, "name", m.name)
		if err := m.up(ctx, db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}

		// Mark as applied
		_, err = db.NewInsert().
			Model(&AppliedMigration{Version: m.version}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.version, err)
		}
	}

	Logger.Info("All migrations completed successfully")
	return nil
}

// Migration 001: notes table, newest-first listing index
func init001CreateNotesTable(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewCreateTable().
			Model((*BunNote)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create notes table: %w", err)
		}
		if _, err := tx.NewCreateIndex().
			Model((*BunNote)(nil)).
			Index("notes_created_at_idx").
			Column("created_at").
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create notes index: %w", err)
		}
		return nil
	})
}
