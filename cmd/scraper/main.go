package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/rental-listing-scraper/internal/browser"
	"github.com/maltedev/rental-listing-scraper/internal/config"
	"github.com/maltedev/rental-listing-scraper/internal/database"
	"github.com/maltedev/rental-listing-scraper/internal/events"
	"github.com/maltedev/rental-listing-scraper/internal/fetcher"
	"github.com/maltedev/rental-listing-scraper/internal/ratelimit"
	"github.com/maltedev/rental-listing-scraper/internal/scraper"
	"github.com/maltedev/rental-listing-scraper/internal/storage"
	"github.com/maltedev/rental-listing-scraper/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return err
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := storage.NewMultiSink(log).
		Add("results", storage.NewResultStore(cfg.Output.ResultsDir))

	var runs scraper.RunRecorder
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, database.Config{
			URL:      cfg.Database.URL,
			MaxConns: int32(cfg.Database.MaxConns),
		})
		if err != nil {
			log.Error("Failed to connect to database", "error", err)
			return err
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			log.Error("Failed to prepare database schema", "error", err)
			return err
		}

		sinks.Add("postgres", database.NewListingRepository(db, log))
		runs = database.NewRunRepository(db)
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		publisher := events.NewPublisher(client, cfg.Redis.Stream, log)
		defer publisher.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			return err
		}
		sinks.Add("redis", publisher)
	}

	browserOpts := &browser.Options{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.Browser.Timeout,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
		AcceptLanguage: cfg.Browser.AcceptLanguage,
		TimezoneID:     cfg.Browser.TimezoneID,
		Locale:         cfg.Browser.Locale,
	}
	launch := func() (scraper.Browser, error) {
		b, err := browser.New(browserOpts)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	f := fetcher.New(fetcher.Options{
		BatchSize:      cfg.Fetch.BatchSize,
		RequestTimeout: cfg.Fetch.RequestTimeout,
		UserAgent:      cfg.Browser.UserAgent,
	}, log)

	pipeline := scraper.NewPipeline(
		scraper.NewCraigslist(cfg.Scraper.SearchURL, cfg.Scraper.ResultsTimeout),
		cfg.Search,
		launch,
		f,
		sinks,
		scraper.PipelineOptions{
			Session: scraper.SessionOptions{
				NavigationTimeout:  cfg.Browser.Timeout,
				NavigationAttempts: cfg.Scraper.NavRetries,
			},
			Pagination: scraper.PaginationOptions{
				MaxPages: cfg.Scraper.MaxPages,
				Limiter:  ratelimit.NewPacer(cfg.Scraper.PageDelayMin, cfg.Scraper.PageDelayMax),
			},
			DedupeLinks: cfg.Scraper.DedupeLinks,
		},
		log,
	)
	if runs != nil {
		pipeline.WithRunRecorder(runs)
	}

	if _, err := pipeline.Run(ctx); err != nil {
		log.Error("Scraper failed", "error", err)
		return err
	}
	return nil
}
