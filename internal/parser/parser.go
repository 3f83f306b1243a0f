package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/maltedev/rental-listing-scraper/internal/models"
	"github.com/maltedev/rental-listing-scraper/pkg/logger"
)

var (
	ErrNoListingData        = errors.New("no structured listing data")
	ErrListingRemoved       = errors.New("listing was removed")
	ErrListingBlocked       = errors.New("listing was blocked")
	ErrMalformedListingData = errors.New("malformed structured listing data")
)

// Parser turns one fetched detail page into a listing. A nil listing is
// always returned together with one of the package errors.
type Parser interface {
	ParseListing(outcome models.FetchOutcome) (*models.Listing, error)
}

// ParseListings parses every outcome, logging and skipping pages that yield no listing.
func ParseListings(p Parser, outcomes []models.FetchOutcome, status *logger.Status) []models.Listing {
	listings := make([]models.Listing, 0, len(outcomes))

	for i, outcome := range outcomes {
		status.Logger().Debug(fmt.Sprintf("Parsing page %d", i+1), "total", len(outcomes))

		listing, err := p.ParseListing(outcome)
		if err != nil {
			status.Error(FailureMessage(outcome.URL, err), "error", err)
			continue
		}
		listings = append(listings, *listing)
	}

	status.Info(fmt.Sprintf("Parsed %d listings", len(listings)), "pages", len(outcomes))
	return listings
}

// FailureMessage describes why a page produced no listing.
func FailureMessage(url string, err error) string {
	message := "Could not parse listing details for page with URL " + url
	switch {
	case errors.Is(err, ErrListingRemoved):
		return message + " because it was removed"
	case errors.Is(err, ErrListingBlocked):
		return message + " because it was blocked"
	default:
		return message
	}
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// leadingDigits returns s up to its first non-digit.
func leadingDigits(s string) string {
	for i, r := range s {
		if !unicode.IsDigit(r) {
			return s[:i]
		}
	}
	return s
}
