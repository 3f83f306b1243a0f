package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/rental-listing-scraper/internal/config"
	"github.com/maltedev/rental-listing-scraper/internal/fetcher"
	"github.com/maltedev/rental-listing-scraper/internal/models"
	"github.com/maltedev/rental-listing-scraper/internal/parser"
	"github.com/maltedev/rental-listing-scraper/internal/storage"
	"github.com/maltedev/rental-listing-scraper/pkg/logger"
)

// RunRecorder keeps a log of pipeline runs.
type RunRecorder interface {
	StartRun(ctx context.Context, run *models.ScrapeRun) error
	FinishRun(ctx context.Context, run *models.ScrapeRun) error
}

type PipelineOptions struct {
	Session     SessionOptions
	Pagination  PaginationOptions
	DedupeLinks bool
}

// Pipeline runs launch, filter, paginate, fetch, parse and store for one source.
type Pipeline struct {
	source  Source
	search  config.Search
	launch  Launcher
	fetcher *fetcher.Fetcher
	sink    storage.Sink
	runs    RunRecorder
	opts    PipelineOptions
	status  *logger.Status
}

func NewPipeline(source Source, search config.Search, launch Launcher, f *fetcher.Fetcher, sink storage.Sink, opts PipelineOptions, base *slog.Logger) *Pipeline {
	return &Pipeline{
		source:  source,
		search:  search,
		launch:  launch,
		fetcher: f,
		sink:    sink,
		opts:    opts,
		status:  logger.NewStatus(base, source.Name()),
	}
}

// WithRunRecorder records run start and finish. Recorder failures are logged only.
func (p *Pipeline) WithRunRecorder(r RunRecorder) *Pipeline {
	p.runs = r
	return p
}

// Run executes the pipeline. The returned error wraps one of ErrLaunch,
// ErrNavigation, ErrForbidden, ErrFilters or ErrScrape. Sink failures are
// logged and do not fail the run.
func (p *Pipeline) Run(ctx context.Context) (*models.ScrapeRun, error) {
	run := models.NewScrapeRun(p.source.Name())
	status := p.status.With("run_id", run.ID.String())
	p.recordStart(ctx, run, status)

	listings, err := p.scrape(ctx, run, status)
	if err != nil {
		run.Finish(err)
		p.recordFinish(ctx, run, status)
		return run, err
	}
	run.Listings = len(listings)

	if p.sink != nil {
		if err := p.sink.Write(ctx, p.source.Name(), listings); err != nil {
			status.Error("Failed to output scraping results", "error", err)
		} else {
			status.Success("Scraping results written", "count", len(listings))
		}
	}

	run.Finish(nil)
	p.recordFinish(ctx, run, status)
	status.Success(fmt.Sprintf("Scraped %d listings", len(listings)),
		"links", run.Links,
		"fetched", run.Fetched)

	return run, nil
}

func (p *Pipeline) scrape(ctx context.Context, run *models.ScrapeRun, status *logger.Status) ([]models.Listing, error) {
	session := NewSession(ctx, p.source.Name(), p.launch, p.opts.Session, status)
	defer session.Close()

	page, err := session.Start(p.source.SearchURL())
	if err != nil {
		session.Abort(err)
		return nil, err
	}

	status.Info("Applying search filters")
	if err := p.source.ApplyFilters(page, p.search); err != nil {
		return nil, p.fail(session, ErrFilters, err)
	}

	if err := session.BeginScraping(); err != nil {
		return nil, p.fail(session, ErrScrape, err)
	}

	links, err := CollectLinks(session.Context(), p.source.Pager(page), p.opts.Pagination, status)
	if err != nil {
		return nil, p.fail(session, ErrScrape, err)
	}
	run.Links = len(links)

	if p.opts.DedupeLinks {
		if unique := DedupeLinks(links); len(unique) != len(links) {
			status.Log("Dropped duplicate links", "before", len(links), "after", len(unique))
			links = unique
		}
	}

	status.Info(fmt.Sprintf("Fetching %d listing pages", len(links)), "batch_size", p.fetcher.BatchSize())
	outcomes := p.fetcher.FetchAll(session.Context(), links)
	run.Fetched = len(outcomes)

	if session.Blocked() {
		return nil, p.fail(session, ErrForbidden, errors.New("session blocked during scraping"))
	}

	return parser.ParseListings(p.source.Parser(), outcomes, status), nil
}

// fail closes the session and reports the error, preferring ErrForbidden
// when the host blocked the session.
func (p *Pipeline) fail(session *Session, kind error, cause error) error {
	if session.Blocked() {
		kind = ErrForbidden
	}
	err := fmt.Errorf("%w: %v", kind, cause)
	session.Abort(err)
	return err
}

func (p *Pipeline) recordStart(ctx context.Context, run *models.ScrapeRun, status *logger.Status) {
	if p.runs == nil {
		return
	}
	if err := p.runs.StartRun(ctx, run); err != nil {
		status.Error("Failed to record run start", "error", err)
	}
}

func (p *Pipeline) recordFinish(ctx context.Context, run *models.ScrapeRun, status *logger.Status) {
	if p.runs == nil {
		return
	}
	// the run context may already be cancelled by a fatal error
	if err := p.runs.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		status.Error("Failed to record run finish", "error", err)
	}
}
