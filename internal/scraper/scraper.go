package scraper

import (
	"errors"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/rental-listing-scraper/internal/config"
	"github.com/maltedev/rental-listing-scraper/internal/parser"
)

var (
	ErrLaunch            = errors.New("failed to start browser session")
	ErrNavigation        = errors.New("failed to open search page")
	ErrForbidden         = errors.New("access forbidden by remote host")
	ErrFilters           = errors.New("failed to apply search filters")
	ErrScrape            = errors.New("failed to scrape results")
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrMalformedCounter  = errors.New("malformed result counter")
	ErrPageLimit         = errors.New("page limit reached before results were exhausted")
)

// Source is the per-site capability set the pipeline is parameterized by.
type Source interface {
	Name() string
	SearchURL() string
	ApplyFilters(page playwright.Page, search config.Search) error
	Pager(page playwright.Page) ResultPager
	Parser() parser.Parser
}

// ResultPager exposes the search results page to the pagination driver.
type ResultPager interface {
	WaitForResults() error
	ResultLinks() ([]string, error)
	// Counters returns the end of the displayed result range and the total result count.
	Counters() (current, total int, err error)
	NextPage() error
}

// Browser is the launched browser owned by a session.
type Browser interface {
	NewPage() (playwright.Page, error)
	Close() error
}

type Launcher func() (Browser, error)
