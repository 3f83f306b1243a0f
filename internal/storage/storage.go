package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/maltedev/rental-listing-scraper/internal/models"
)

var ErrSourceNotFound = errors.New("no results for source")

// Sink persists the listings produced by one scraper run.
type Sink interface {
	Write(ctx context.Context, source string, listings []models.Listing) error
}

// ResultStore keeps one JSON array of listings per source in a directory.
type ResultStore struct {
	mu  sync.RWMutex
	dir string
}

func NewResultStore(dir string) *ResultStore {
	return &ResultStore{dir: dir}
}

func (s *ResultStore) Dir() string {
	return s.dir
}

// Path returns the result file for a source, named after its lower-cased name.
func (s *ResultStore) Path(source string) string {
	return filepath.Join(s.dir, fileName(source)+".json")
}

// Write replaces the stored results for source.
func (s *ResultStore) Write(ctx context.Context, source string, listings []models.Listing) error {
	if fileName(source) == "" {
		return fmt.Errorf("source name is required")
	}
	if listings == nil {
		listings = []models.Listing{}
	}

	data, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode listings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create results dir: %w", err)
	}

	path := s.Path(source)

	// Write to temp file first for atomicity
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to replace results: %w", err)
	}

	return nil
}

func (s *ResultStore) Load(source string) ([]models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(source))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
		return nil, err
	}

	var listings []models.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode results for %s: %w", source, err)
	}
	return listings, nil
}

// Sources lists the sources that have a result file.
func (s *ResultStore) Sources() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	sources := []string{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		sources = append(sources, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(sources)
	return sources, nil
}

func fileName(source string) string {
	return strings.ToLower(strings.TrimSpace(source))
}

// MultiSink writes to every sink. Failures are logged and joined.
type MultiSink struct {
	sinks  []namedSink
	logger *slog.Logger
}

type namedSink struct {
	name string
	sink Sink
}

func NewMultiSink(logger *slog.Logger) *MultiSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiSink{logger: logger.With("component", "sink")}
}

func (m *MultiSink) Add(name string, sink Sink) *MultiSink {
	m.sinks = append(m.sinks, namedSink{name: name, sink: sink})
	return m
}

func (m *MultiSink) Len() int {
	return len(m.sinks)
}

func (m *MultiSink) Write(ctx context.Context, source string, listings []models.Listing) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.sink.Write(ctx, source, listings); err != nil {
			m.logger.Error("failed to write results", "sink", s.name, "source", source, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		m.logger.Debug("results written", "sink", s.name, "source", source, "count", len(listings))
	}
	return errors.Join(errs...)
}
