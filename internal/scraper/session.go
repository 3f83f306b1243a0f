package scraper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/rental-listing-scraper/internal/browser"
	"github.com/maltedev/rental-listing-scraper/pkg/logger"
)

type State int

const (
	StateUninitialized State = iota
	StateLaunching
	StateFilterApplication
	StateScraping
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLaunching:
		return "launching"
	case StateFilterApplication:
		return "filter_application"
	case StateScraping:
		return "scraping"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State]State{
	StateUninitialized:     StateLaunching,
	StateLaunching:         StateFilterApplication,
	StateFilterApplication: StateScraping,
}

type SessionOptions struct {
	NavigationTimeout  time.Duration
	NavigationAttempts int
}

// Session owns the browser and the single page of one scraper run.
type Session struct {
	name   string
	launch Launcher
	opts   SessionOptions
	status *logger.Status

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	browser Browser
	page    playwright.Page

	blocked   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewSession(ctx context.Context, name string, launch Launcher, opts SessionOptions, status *logger.Status) *Session {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	if opts.NavigationAttempts < 1 {
		opts.NavigationAttempts = 1
	}
	if status == nil {
		status = logger.NewStatus(nil, name)
	}

	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		name:   name,
		launch: launch,
		opts:   opts,
		status: status,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context is cancelled when the session closes or is blocked.
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Page returns the session page, or nil before Start has opened it.
func (s *Session) Page() playwright.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *Session) Blocked() bool {
	return s.blocked.Load()
}

func (s *Session) advance(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next, ok := transitions[s.state]; !ok || next != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
	}
	s.state = to
	return nil
}

// Start launches the browser, opens the page, installs the response check
// and navigates to targetURL.
func (s *Session) Start(targetURL string) (playwright.Page, error) {
	if err := s.advance(StateLaunching); err != nil {
		return nil, err
	}

	b, err := s.launch()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	s.mu.Lock()
	s.browser = b
	s.mu.Unlock()

	page, err := b.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	s.mu.Lock()
	s.page = page
	s.mu.Unlock()

	page.OnResponse(func(response playwright.Response) {
		s.CheckResponse(response.Status(), response.URL())
	})

	s.status.Info("Navigating to search page", "url", targetURL)
	resp, err := browser.Navigate(page, targetURL, s.opts.NavigationAttempts, s.opts.NavigationTimeout, s.status.Logger())
	if s.Blocked() {
		return nil, ErrForbidden
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	if resp != nil && s.CheckResponse(resp.Status(), targetURL) {
		return nil, ErrForbidden
	}

	if err := s.advance(StateFilterApplication); err != nil {
		return nil, err
	}
	return page, nil
}

// BeginScraping moves the session from filter application to scraping.
func (s *Session) BeginScraping() error {
	return s.advance(StateScraping)
}

// CheckResponse applies the forbidden check to a response seen by the
// session. A forbidden response blocks and closes the session.
func (s *Session) CheckResponse(status int, url string) bool {
	if !browser.IsForbidden(status) {
		return false
	}

	if s.blocked.CompareAndSwap(false, true) {
		s.status.Error("Received forbidden response, closing session", "url", url, "status", status)
		s.cancel()
		go s.Close()
	}
	return true
}

// Abort records a fatal error and closes the session.
func (s *Session) Abort(err error) {
	s.status.Error("Aborting session", "state", s.State().String(), "error", err)
	s.Close()
}

// Close releases the browser. It is safe to call more than once and from
// several goroutines; later callers wait for the first close to finish.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosing
		b := s.browser
		s.mu.Unlock()

		s.cancel()

		if b != nil {
			s.closeErr = b.Close()
		}

		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()

		if s.closeErr != nil {
			s.status.Error("Failed to close browser", "error", s.closeErr)
		} else {
			s.status.Log("Browser closed")
		}
	})
	return s.closeErr
}
