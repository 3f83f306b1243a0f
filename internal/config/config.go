package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Fetch    FetchConfig
	Output   OutputConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
	Search   Search
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type ScraperConfig struct {
	SearchConfigPath string
	SearchURL        string
	MaxPages         int
	ResultsTimeout   time.Duration
	PageDelayMin     time.Duration
	PageDelayMax     time.Duration
	DedupeLinks      bool
	NavRetries       int
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type FetchConfig struct {
	BatchSize      int
	RequestTimeout time.Duration
}

type OutputConfig struct {
	ResultsDir string
}

// DatabaseConfig enables the Postgres sink when URL is set.
type DatabaseConfig struct {
	URL      string
	MaxConns int
}

// RedisConfig enables the event stream sink when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads .env (if present), the environment, and the search file.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	search, err := LoadSearch(cfg.Scraper.SearchConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Search = *search

	return cfg, nil
}

// LoadEnv reads .env (if present) and the environment. The search file is
// left at its defaults.
func LoadEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds the runtime configuration without the search file.
func FromEnv() *Config {
	return &Config{
		Search: DefaultSearch(),
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://localhost:*"}),
		},
		Scraper: ScraperConfig{
			SearchConfigPath: getEnvOrDefault("SEARCH_CONFIG", "scraper.yaml"),
			SearchURL:        getEnvOrDefault("SCRAPER_SEARCH_URL", ""),
			MaxPages:         getIntOrDefault("SCRAPER_MAX_PAGES", 200),
			ResultsTimeout:   getDurationOrDefault("SCRAPER_RESULTS_TIMEOUT", 5*time.Second),
			PageDelayMin:     getDurationOrDefault("SCRAPER_PAGE_DELAY_MIN", 500*time.Millisecond),
			PageDelayMax:     getDurationOrDefault("SCRAPER_PAGE_DELAY_MAX", 1500*time.Millisecond),
			DedupeLinks:      getBoolOrDefault("SCRAPER_DEDUPE_LINKS", true),
			NavRetries:       getIntOrDefault("SCRAPER_NAV_RETRIES", 1),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/Chicago"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
		},
		Fetch: FetchConfig{
			BatchSize:      getIntOrDefault("FETCH_BATCH_SIZE", 500),
			RequestTimeout: getDurationOrDefault("FETCH_REQUEST_TIMEOUT", 30*time.Second),
		},
		Output: OutputConfig{
			ResultsDir: getEnvOrDefault("RESULTS_DIR", "results"),
		},
		Database: DatabaseConfig{
			URL:      getEnvOrDefault("DATABASE_URL", ""),
			MaxConns: getIntOrDefault("DATABASE_MAX_CONNS", 4),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:rental_listings"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "log"),
			Format: getEnvOrDefault("LOG_FORMAT", "color"),
		},
	}
}

func (c *Config) Validate() error {
	if c.Fetch.BatchSize < 1 {
		return fmt.Errorf("FETCH_BATCH_SIZE must be at least 1")
	}

	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("SCRAPER_MAX_PAGES must be at least 1")
	}

	if c.Scraper.NavRetries < 1 {
		return fmt.Errorf("SCRAPER_NAV_RETRIES must be at least 1")
	}

	if c.Scraper.PageDelayMin > c.Scraper.PageDelayMax {
		return fmt.Errorf("SCRAPER_PAGE_DELAY_MIN cannot be greater than SCRAPER_PAGE_DELAY_MAX")
	}

	if c.Output.ResultsDir == "" {
		return fmt.Errorf("RESULTS_DIR must not be empty")
	}

	return c.Search.Validate()
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
