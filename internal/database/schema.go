package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rental_listings (
		url           TEXT PRIMARY KEY,
		source        TEXT NOT NULL,
		address       TEXT NOT NULL DEFAULT '',
		bathrooms     DOUBLE PRECISION,
		bedrooms      DOUBLE PRECISION,
		image         TEXT NOT NULL DEFAULT '',
		pets_allowed  BOOLEAN NOT NULL DEFAULT FALSE,
		price         DOUBLE PRECISION,
		size          DOUBLE PRECISION,
		type          TEXT NOT NULL DEFAULT 'unknown',
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rental_listings_source ON rental_listings (source, updated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS scrape_runs (
		id          UUID PRIMARY KEY,
		source      TEXT NOT NULL,
		status      TEXT NOT NULL,
		links       INTEGER NOT NULL DEFAULT 0,
		fetched     INTEGER NOT NULL DEFAULT 0,
		listings    INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT '',
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ
	)`,
}

// EnsureSchema creates the listing and run tables if they are missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
