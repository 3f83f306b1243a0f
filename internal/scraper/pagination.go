package scraper

import (
	"context"
	"fmt"

	"github.com/maltedev/rental-listing-scraper/internal/ratelimit"
	"github.com/maltedev/rental-listing-scraper/pkg/logger"
)

const DefaultMaxPages = 200

type PaginationOptions struct {
	// MaxPages bounds the loop in case the result counters never agree.
	MaxPages int
	Limiter  ratelimit.RateLimiter
}

// CollectLinks walks every result page and returns the listing links in
// page order. Duplicates are kept. It stops once the displayed range end
// reaches the total count.
func CollectLinks(ctx context.Context, pager ResultPager, opts PaginationOptions, status *logger.Status) ([]string, error) {
	if opts.MaxPages < 1 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}

	var links []string
	for pageNum := 1; ; pageNum++ {
		if err := ctx.Err(); err != nil {
			return links, err
		}

		if err := pager.WaitForResults(); err != nil {
			return links, fmt.Errorf("results did not render on page %d: %w", pageNum, err)
		}

		found, err := pager.ResultLinks()
		if err != nil {
			return links, fmt.Errorf("failed to collect links on page %d: %w", pageNum, err)
		}
		links = append(links, found...)

		current, total, err := pager.Counters()
		if err != nil {
			return links, fmt.Errorf("failed to read counters on page %d: %w", pageNum, err)
		}

		status.Log(fmt.Sprintf("Collected %d of %d results", current, total), "page", pageNum, "links", len(found))

		if current >= total {
			return links, nil
		}

		if pageNum >= opts.MaxPages {
			return links, fmt.Errorf("%w: %d pages, %d of %d results", ErrPageLimit, pageNum, current, total)
		}

		if err := opts.Limiter.Wait(ctx); err != nil {
			return links, err
		}

		if err := pager.NextPage(); err != nil {
			return links, fmt.Errorf("failed to open page %d: %w", pageNum+1, err)
		}
	}
}

// DedupeLinks drops repeated links, keeping the first occurrence.
func DedupeLinks(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	unique := make([]string, 0, len(links))
	for _, l := range links {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		unique = append(unique, l)
	}
	return unique
}
