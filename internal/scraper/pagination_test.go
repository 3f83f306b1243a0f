package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/rental-listing-scraper/internal/ratelimit"
)

func linksRange(from, to int) []string {
	var links []string
	for i := from; i < to; i++ {
		links = append(links, fmt.Sprintf("https://minneapolis.craigslist.org/apa/d/%d.html", i))
	}
	return links
}

func TestCollectLinksTwoPages(t *testing.T) {
	pager := &fakePager{pages: []resultPage{
		{links: linksRange(0, 48), rangeTo: 48, total: 50},
		{links: linksRange(48, 50), rangeTo: 50, total: 50},
	}}

	links, err := CollectLinks(context.Background(), pager, PaginationOptions{}, quietStatus())
	require.NoError(t, err)
	assert.Equal(t, linksRange(0, 50), links)
	assert.Equal(t, 1, pager.nextCalls)
}

func TestCollectLinksSinglePage(t *testing.T) {
	pager := &fakePager{pages: []resultPage{{links: linksRange(0, 3), rangeTo: 3, total: 3}}}

	links, err := CollectLinks(context.Background(), pager, PaginationOptions{}, quietStatus())
	require.NoError(t, err)
	assert.Len(t, links, 3)
	assert.Zero(t, pager.nextCalls)
}

func TestCollectLinksKeepsDuplicates(t *testing.T) {
	pager := &fakePager{pages: []resultPage{
		{links: linksRange(0, 2), rangeTo: 2, total: 4},
		{links: linksRange(1, 3), rangeTo: 4, total: 4},
	}}

	links, err := CollectLinks(context.Background(), pager, PaginationOptions{}, quietStatus())
	require.NoError(t, err)
	assert.Len(t, links, 4)
	assert.Equal(t, links[1], links[2])
	assert.Len(t, DedupeLinks(links), 3)
}

func TestCollectLinksResultsNeverRender(t *testing.T) {
	pager := &fakePager{waitErr: errors.New("timeout 5000ms exceeded")}

	links, err := CollectLinks(context.Background(), pager, PaginationOptions{}, quietStatus())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "results did not render on page 1")
	assert.Empty(t, links)
}

func TestCollectLinksMalformedCounter(t *testing.T) {
	pager := &fakePager{
		pages: []resultPage{
			{links: linksRange(0, 2), rangeTo: 2, total: 4},
			{links: linksRange(2, 4), rangeTo: 4, total: 4},
		},
		counterErr: fmt.Errorf("%w: %q", ErrMalformedCounter, ""),
	}

	links, err := CollectLinks(context.Background(), pager, PaginationOptions{}, quietStatus())
	assert.ErrorIs(t, err, ErrMalformedCounter)
	assert.Len(t, links, 4)
}

func TestCollectLinksPageLimit(t *testing.T) {
	pager := &fakePager{endless: true}

	links, err := CollectLinks(context.Background(), pager, PaginationOptions{MaxPages: 3}, quietStatus())
	assert.ErrorIs(t, err, ErrPageLimit)
	assert.Len(t, links, 3)
	assert.Equal(t, 2, pager.nextCalls)
}

func TestCollectLinksNextPageFailure(t *testing.T) {
	pager := &fakePager{
		pages:  []resultPage{{links: linksRange(0, 1), rangeTo: 1, total: 2}},
		onNext: func() error { return errors.New("element is not visible") },
	}

	_, err := CollectLinks(context.Background(), pager, PaginationOptions{}, quietStatus())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open page 2")
}

func TestCollectLinksCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pager := &fakePager{endless: true, onNext: func() error {
		cancel()
		return nil
	}}

	_, err := CollectLinks(ctx, pager, PaginationOptions{}, quietStatus())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, pager.nextCalls)
}

func TestCollectLinksPaced(t *testing.T) {
	pager := &fakePager{pages: []resultPage{
		{links: linksRange(0, 1), rangeTo: 1, total: 3},
		{links: linksRange(1, 2), rangeTo: 2, total: 3},
		{links: linksRange(2, 3), rangeTo: 3, total: 3},
	}}

	start := time.Now()
	opts := PaginationOptions{Limiter: ratelimit.NewPacer(20*time.Millisecond, 20*time.Millisecond)}
	links, err := CollectLinks(context.Background(), pager, opts, quietStatus())
	require.NoError(t, err)
	assert.Len(t, links, 3)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDedupeLinks(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, DedupeLinks([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, DedupeLinks(nil))
}
