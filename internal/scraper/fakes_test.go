package scraper

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/rental-listing-scraper/internal/config"
	"github.com/maltedev/rental-listing-scraper/internal/parser"
	"github.com/maltedev/rental-listing-scraper/pkg/logger"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quietStatus() *logger.Status {
	return logger.NewStatus(quietLogger(), "Test")
}

type fakeResponse struct {
	playwright.Response
	status int
	url    string
}

func (r *fakeResponse) Status() int { return r.status }

func (r *fakeResponse) URL() string { return r.url }

// fakePage implements the parts of playwright.Page a session touches.
type fakePage struct {
	playwright.Page

	mu         sync.Mutex
	handlers   []func(playwright.Response)
	gotoStatus int
	gotoErr    error
	gotoURLs   []string
}

func (p *fakePage) OnResponse(fn func(playwright.Response)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, fn)
}

func (p *fakePage) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.mu.Lock()
	p.gotoURLs = append(p.gotoURLs, url)
	p.mu.Unlock()

	if p.gotoErr != nil {
		return nil, p.gotoErr
	}
	status := p.gotoStatus
	if status == 0 {
		status = 200
	}
	resp := &fakeResponse{status: status, url: url}
	p.emit(resp)
	return resp, nil
}

func (p *fakePage) emit(resp playwright.Response) {
	p.mu.Lock()
	handlers := append([]func(playwright.Response){}, p.handlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(resp)
	}
}

type fakeBrowser struct {
	page       playwright.Page
	newPageErr error
	closes     atomic.Int32
}

func (b *fakeBrowser) NewPage() (playwright.Page, error) {
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	return b.page, nil
}

func (b *fakeBrowser) Close() error {
	b.closes.Add(1)
	return nil
}

func launcherFor(b *fakeBrowser) Launcher {
	return func() (Browser, error) { return b, nil }
}

func failingLauncher() Launcher {
	return func() (Browser, error) { return nil, errors.New("chromium not installed") }
}

type resultPage struct {
	links   []string
	rangeTo int
	total   int
}

type fakePager struct {
	pages      []resultPage
	index      int
	waitErr    error
	counterErr error
	nextCalls  int
	onNext     func() error
	endless    bool
}

func (p *fakePager) WaitForResults() error {
	return p.waitErr
}

func (p *fakePager) current() resultPage {
	if p.endless {
		return resultPage{links: []string{"https://example.org/x"}, rangeTo: 1, total: 1000}
	}
	return p.pages[p.index]
}

func (p *fakePager) ResultLinks() ([]string, error) {
	return p.current().links, nil
}

func (p *fakePager) Counters() (int, int, error) {
	if p.counterErr != nil && p.index > 0 {
		return 0, 0, p.counterErr
	}
	c := p.current()
	return c.rangeTo, c.total, nil
}

func (p *fakePager) NextPage() error {
	p.nextCalls++
	if p.onNext != nil {
		if err := p.onNext(); err != nil {
			return err
		}
	}
	if !p.endless {
		p.index++
	}
	return nil
}

type fakeSource struct {
	searchURL string
	pager     ResultPager
	filterErr error
	filtered  config.Search
}

func (s *fakeSource) Name() string { return "Craigslist" }

func (s *fakeSource) SearchURL() string { return s.searchURL }

func (s *fakeSource) ApplyFilters(page playwright.Page, search config.Search) error {
	s.filtered = search
	return s.filterErr
}

func (s *fakeSource) Pager(page playwright.Page) ResultPager { return s.pager }

func (s *fakeSource) Parser() parser.Parser { return parser.NewCraigslistParser() }
