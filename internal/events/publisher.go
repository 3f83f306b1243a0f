package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/rental-listing-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeListingScraped is published once per parsed listing
	EventTypeListingScraped EventType = "LISTING_SCRAPED"
	// EventTypeScrapeCompleted closes the batch of listing events of a run
	EventTypeScrapeCompleted EventType = "SCRAPE_COMPLETED"
)

const DefaultStream = "stream:rental_listings"

var ErrPublish = errors.New("failed to publish event")

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type ScrapeCompletedPayload struct {
	Count  int `json:"count"`
	Failed int `json:"failed"`
}

// Publisher writes listing events to a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
		now:    time.Now,
	}
}

// Write publishes one LISTING_SCRAPED event per listing followed by a
// SCRAPE_COMPLETED event. Individual failures are logged and the remaining
// listings are still published.
func (p *Publisher) Write(ctx context.Context, source string, listings []models.Listing) error {
	var errs []error
	for _, l := range listings {
		if err := p.publish(ctx, EventTypeListingScraped, source, l.URL, l); err != nil {
			p.logger.Error("failed to publish listing", "url", l.URL, "error", err)
			errs = append(errs, err)
		}
	}

	summary := ScrapeCompletedPayload{Count: len(listings) - len(errs), Failed: len(errs)}
	if err := p.publish(ctx, EventTypeScrapeCompleted, source, "", summary); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	p.logger.Info("listing events published", "source", source, "count", len(listings), "stream", p.stream)
	return nil
}

func (p *Publisher) publish(ctx context.Context, eventType EventType, source, aggregateID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: p.now().UTC(),
		Payload:   data,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"data":         string(eventJSON),
			"type":         string(eventType),
			"timestamp":    fmt.Sprintf("%d", event.Timestamp.UnixNano()),
			"event_id":     event.ID,
			"aggregate_id": aggregateID,
			"source":       source,
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublish, eventType, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.redis.Close()
}
