package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maltedev/rental-listing-scraper/internal/browser"
	"github.com/maltedev/rental-listing-scraper/internal/models"
)

const DefaultBatchSize = 500

type Options struct {
	BatchSize      int
	RequestTimeout time.Duration
	UserAgent      string
	Client         *http.Client
}

// Fetcher retrieves page bodies in sequential batches of concurrent requests.
type Fetcher struct {
	client    *http.Client
	batchSize int
	userAgent string
	logger    *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Fetcher {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.RequestTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		client:    client,
		batchSize: opts.BatchSize,
		userAgent: opts.UserAgent,
		logger:    logger.With("component", "fetcher"),
	}
}

func (f *Fetcher) BatchSize() int {
	return f.batchSize
}

// FetchAll fetches every URL and returns the successful outcomes. Failed
// requests are dropped. Each batch completes before the next one starts and
// outcomes keep their order within a batch.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []models.FetchOutcome {
	outcomes := make([]models.FetchOutcome, 0, len(urls))

	for start := 0; start < len(urls); start += f.batchSize {
		if ctx.Err() != nil {
			f.logger.Warn("fetch cancelled", "remaining", len(urls)-start, "error", ctx.Err())
			break
		}

		end := min(start+f.batchSize, len(urls))
		resolved := f.fetchBatch(ctx, urls[start:end])
		outcomes = append(outcomes, resolved...)

		f.logger.Info(fmt.Sprintf("Resolved %d requests", end),
			"total", len(urls),
			"batch_size", end-start,
			"failed", end-start-len(resolved))
	}

	return outcomes
}

func (f *Fetcher) fetchBatch(ctx context.Context, batch []string) []models.FetchOutcome {
	results := make([]*models.FetchOutcome, len(batch))

	var g errgroup.Group
	for i, url := range batch {
		i, url := i, url
		g.Go(func() error {
			outcome, err := f.fetch(ctx, url)
			if err != nil {
				f.logger.Debug("request failed", "url", url, "error", err)
				return nil
			}
			results[i] = outcome
			return nil
		})
	}
	g.Wait()

	resolved := make([]models.FetchOutcome, 0, len(batch))
	for _, r := range results {
		if r != nil {
			resolved = append(resolved, *r)
		}
	}
	return resolved
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*models.FetchOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if browser.IsForbidden(resp.StatusCode) {
		return nil, fmt.Errorf("forbidden: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	return &models.FetchOutcome{
		URL:        url,
		Body:       string(body),
		StatusCode: resp.StatusCode,
	}, nil
}
