package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/rental-listing-scraper/internal/models"
)

// ListingRepository upserts parsed listings keyed by URL.
type ListingRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewListingRepository(db *DB, logger *slog.Logger) *ListingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingRepository{
		db:     db,
		logger: logger.With("component", "listing_repository"),
	}
}

const upsertListing = `
	INSERT INTO rental_listings (
		url, source, address, bathrooms, bedrooms,
		image, pets_allowed, price, size, type
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	)
	ON CONFLICT (url) DO UPDATE SET
		source = EXCLUDED.source,
		address = EXCLUDED.address,
		bathrooms = EXCLUDED.bathrooms,
		bedrooms = EXCLUDED.bedrooms,
		image = EXCLUDED.image,
		pets_allowed = EXCLUDED.pets_allowed,
		price = EXCLUDED.price,
		size = EXCLUDED.size,
		type = EXCLUDED.type,
		updated_at = NOW()`

// Write upserts all listings of a run in one transaction.
func (r *ListingRepository) Write(ctx context.Context, source string, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, l := range listings {
			batch.Queue(upsertListing,
				l.URL, source, l.Address,
				nullableNumber(l.Bathrooms), nullableNumber(l.Bedrooms),
				l.Image, l.PetsAllowed,
				nullableNumber(l.Price), nullableNumber(l.Size),
				l.Type,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i := range listings {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to upsert listing %s: %w", listings[i].URL, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return err
	}

	r.logger.Info("listings upserted", "source", source, "count", len(listings))
	return nil
}

// List returns stored listings for a source, most recently updated first.
func (r *ListingRepository) List(ctx context.Context, source string, limit, offset int) ([]models.Listing, error) {
	query := `
		SELECT url, address, bathrooms, bedrooms, image,
		       pets_allowed, price, size, type
		FROM rental_listings
		WHERE source = $1
		ORDER BY updated_at DESC, url
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, source, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	listings := []models.Listing{}
	for rows.Next() {
		var l models.Listing
		var bathrooms, bedrooms, price, size *float64
		if err := rows.Scan(&l.URL, &l.Address, &bathrooms, &bedrooms, &l.Image,
			&l.PetsAllowed, &price, &size, &l.Type); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		l.Bathrooms = numberFrom(bathrooms)
		l.Bedrooms = numberFrom(bedrooms)
		l.Price = numberFrom(price)
		l.Size = numberFrom(size)
		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}
	return listings, nil
}

// Count returns the number of stored listings for a source.
func (r *ListingRepository) Count(ctx context.Context, source string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM rental_listings WHERE source = $1`, source).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}

// nullableNumber stores unknown values as NULL.
func nullableNumber(n models.Number) *float64 {
	v, ok := n.Float64()
	if !ok {
		return nil
	}
	return &v
}

func numberFrom(v *float64) models.Number {
	if v == nil {
		return models.UnknownNumber()
	}
	return models.KnownNumber(*v)
}
