package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/stapelberg/postgrestest"
)

// startEphemeralPostgres starts a throwaway PostgreSQL server for development.
// The returned cleanup stops the server and deletes its data.
func startEphemeralPostgres(ctx context.Context) (*sql.DB, func(), error) {
	Logger.Info("Starting ephemeral PostgreSQL server...")

	// Uses a temporary directory by default for simplicity
	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start ephemeral postgres: %w", err)
	}

	notesDSN, err := pgt.CreateDatabase(ctx)
	if err != nil {
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to create notes database: %w", err)
	}
	Logger.Info("Created ephemeral database", "dsn", notesDSN)

	// postgrestest hands out libpq key/value DSNs, which pgdriver does not parse
	sqlDB, err := sql.Open("postgres", notesDSN)
	if err != nil {
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to open notes database: %w", err)
	}

	cleanup := func() {
		Logger.Info("Cleaning up ephemeral PostgreSQL server...")
		pgt.Cleanup()
	}
	return sqlDB, cleanup, nil
}
