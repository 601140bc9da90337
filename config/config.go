package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type Config struct {
	// Server
	Port string // default: 8000
	Env  string // "development" or "production"

	// Cache
	CacheBackend    string        // "redis" or "memory"
	RedisHost       string        // default: localhost
	RedisPort       int           // default: 6379
	RedisPassword   string
	CacheTTL        time.Duration // default: 1h
	CacheTimeout    time.Duration // per cache call, default: 250ms
	CacheMemorySize int           // max entries for the memory backend

	// Rate Limiting
	RateLimitRPM int64 // requests per minute per client, 0 disables

	// Quote log (optional)
	PostgresDSN string

	// Logging
	LogLevel  string
	LogFormat string // "json" or "console"

	// Observability
	OTELExporterType     string // "stdout", "otlp" or "none"
	OTELExporterEndpoint string // default: "localhost:4317"
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8000"),
		Env:                  strings.ToLower(getEnv("ENV", "development")),
		CacheBackend:         strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendRedis)),
		RedisHost:            getEnv("REDIS_HOST", "localhost"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "none"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	defaultFormat := "console"
	if cfg.IsProduction() {
		defaultFormat = "json"
	}
	cfg.LogFormat = getEnv("LOG_FORMAT", defaultFormat)

	var err error
	if cfg.RedisPort, err = strconv.Atoi(getEnv("REDIS_PORT", "6379")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	if cfg.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "1h")); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	if cfg.CacheTimeout, err = time.ParseDuration(getEnv("CACHE_TIMEOUT", "250ms")); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TIMEOUT: %w", err)
	}
	if cfg.CacheMemorySize, err = strconv.Atoi(getEnv("CACHE_MEMORY_SIZE", "10000")); err != nil {
		return nil, fmt.Errorf("invalid CACHE_MEMORY_SIZE: %w", err)
	}
	if cfg.RateLimitRPM, err = strconv.ParseInt(getEnv("RATE_LIMIT_RPM", "0"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPM: %w", err)
	}

	// Validation
	if cfg.CacheBackend != CacheBackendRedis && cfg.CacheBackend != CacheBackendMemory {
		return nil, fmt.Errorf("CACHE_BACKEND must be %q or %q", CacheBackendRedis, CacheBackendMemory)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be positive")
	}
	if cfg.CacheTimeout <= 0 {
		return nil, fmt.Errorf("CACHE_TIMEOUT must be positive")
	}
	if cfg.CacheMemorySize <= 0 {
		return nil, fmt.Errorf("CACHE_MEMORY_SIZE must be positive")
	}
	if cfg.RateLimitRPM < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPM must not be negative")
	}

	return cfg, nil
}

// RedisAddr returns the host:port pair for the cache connection.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
