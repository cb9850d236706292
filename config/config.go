package config

import (
	"os"
	"strconv"
	"time"
)

// Settings holds all runtime configuration. It is loaded once in main and
// passed explicitly into the services that need it.
type Settings struct {
	DatabaseURL    string
	Host           string
	Port           string
	AllowedOrigins string

	// Scraper service defaults; stores may override these through their
	// scraper_service_settings blob.
	ScraperBaseURL        string
	ScraperService        string
	ScraperConnectTimeout float64 // seconds
	ScraperRequestTimeout float64 // seconds

	// Batch refresh tuning.
	PriceFetchChunkSize   int
	PriceCacheHorizonDays int

	// Cron spec (with seconds field) for the periodic catalog refresh.
	RefreshCronSpec string

	RateLimitPerSecond float64
	RequestTimeout     time.Duration
}

// DefaultScraperService is the scraper backend assumed when a store does
// not override it; requests omit the service field in that case.
const DefaultScraperService = "http"

// Load reads settings from the environment, applying defaults.
func Load() *Settings {
	return &Settings{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		ScraperBaseURL:        os.Getenv("SCRAPER_BASE_URL"),
		ScraperService:        getEnv("SCRAPER_SERVICE", DefaultScraperService),
		ScraperConnectTimeout: getEnvFloat("SCRAPER_CONNECT_TIMEOUT", 5.0),
		ScraperRequestTimeout: getEnvFloat("SCRAPER_REQUEST_TIMEOUT", 30.0),

		PriceFetchChunkSize:   getEnvInt("PRICE_FETCH_CHUNK_SIZE", 25),
		PriceCacheHorizonDays: getEnvInt("PRICE_CACHE_HORIZON_DAYS", 365),

		RefreshCronSpec: getEnv("REFRESH_CRON_SPEC", "0 0 */12 * * *"),

		RateLimitPerSecond: getEnvFloat("API_RATE_LIMIT_PER_SECOND", 10),
		RequestTimeout:     getEnvDuration("API_REQUEST_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
