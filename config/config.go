package config

import (
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/boradedesconto/offerfeed/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Offers API configuration
	APIBaseURL     string
	RequestTimeout time.Duration

	// Fallback dataset file; empty means the bundled dataset
	FallbackFile string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr   string
	RateLimitBlock time.Duration

	// Watch mode refresh interval
	RefreshInterval time.Duration

	// Merchant scraping configuration
	AmazonURL       string
	MercadoLivreURL string
	ScrapeStream    string
	ScrapeInterval  time.Duration

	// Click stats window in days
	StatsDays int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"))
	timeout, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "10"))
	block, _ := strconv.Atoi(getEnv("RATE_LIMIT_BLOCK_SECONDS", "300"))
	refresh, _ := strconv.Atoi(getEnv("REFRESH_INTERVAL_SECONDS", "60"))
	statsDays, _ := strconv.Atoi(getEnv("STATS_DAYS", "30"))
	scrapeInterval, _ := strconv.Atoi(getEnv("SCRAPE_INTERVAL_SECONDS", "3600"))

	return &Config{
		APIBaseURL:           getEnv("OFFERS_API_URL", "http://localhost:3000"),
		RequestTimeout:       time.Duration(timeout) * time.Second,
		FallbackFile:         getEnv("FALLBACK_FILE", ""),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "offer_snapshots"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLength,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		RateLimitBlock:       time.Duration(block) * time.Second,
		RefreshInterval:      time.Duration(refresh) * time.Second,
		AmazonURL:            getEnv("AMAZON_URL", "https://www.amazon.com.br/s?k=ofertas+do+dia"),
		MercadoLivreURL:      getEnv("MERCADOLIVRE_URL", "https://www.mercadolivre.com.br/ofertas"),
		ScrapeStream:         getEnv("SCRAPE_STREAM", "scraped_offers"),
		ScrapeInterval:       time.Duration(scrapeInterval) * time.Second,
		StatsDays:            statsDays,
		Environment:          getEnv("OFFERFEED_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.NewConfiguration("OFFERS_API_URL must be an absolute URL", err)
	}
	if c.RequestTimeout <= 0 {
		return errors.NewConfiguration("REQUEST_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.RedisStreamCount < 1 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	if c.RefreshInterval <= 0 {
		return errors.NewConfiguration("REFRESH_INTERVAL_SECONDS must be positive", nil)
	}
	if c.ScrapeInterval <= 0 {
		return errors.NewConfiguration("SCRAPE_INTERVAL_SECONDS must be positive", nil)
	}
	if c.StatsDays < 1 || c.StatsDays > 365 {
		return errors.NewConfiguration("STATS_DAYS must be between 1 and 365", nil)
	}
	return nil
}

// IsProduction reports whether the application runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
