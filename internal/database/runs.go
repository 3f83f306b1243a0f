package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/rental-listing-scraper/internal/models"
)

var ErrRunNotFound = errors.New("scrape run not found")

// RunRepository keeps the scrape_runs log.
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) StartRun(ctx context.Context, run *models.ScrapeRun) error {
	query := `
		INSERT INTO scrape_runs (id, source, status, started_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.db.Exec(ctx, query, run.ID, run.Source, string(run.Status), run.StartedAt); err != nil {
		return fmt.Errorf("failed to insert scrape run: %w", err)
	}
	return nil
}

func (r *RunRepository) FinishRun(ctx context.Context, run *models.ScrapeRun) error {
	query := `
		UPDATE scrape_runs SET
			status = $2,
			links = $3,
			fetched = $4,
			listings = $5,
			error = $6,
			finished_at = $7
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		run.ID, string(run.Status), run.Links, run.Fetched, run.Listings, run.Error, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to update scrape run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.ScrapeRun, error) {
	query := `
		SELECT id, source, status, links, fetched, listings, error, started_at, finished_at
		FROM scrape_runs
		WHERE id = $1`

	var (
		run    models.ScrapeRun
		status string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Source, &status, &run.Links, &run.Fetched,
		&run.Listings, &run.Error, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scrape run: %w", err)
	}
	run.Status = models.RunStatus(status)
	return &run, nil
}
