package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	// Storage
	StoreBackend    string
	DBPath          string
	DBEncryptionKey string
	RedisURL        string
	StoreTimeout    time.Duration

	// Links and HTTP
	BaseURL    string
	ListenAddr string

	// Note lifecycle
	NoteRetention time.Duration
	PurgeDelay    time.Duration
	SweepInterval time.Duration

	// Audit configuration
	AuditLogPath   string
	AuditAsyncMode bool

	// Rate limiting: note creation per client, unlock attempts per note
	RateLimitRPS    int
	RateLimitBurst  int
	UnlockRateRPS   int
	UnlockRateBurst int

	// Application settings
	Environment string
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (not required in production)
	_ = godotenv.Load()

	config := FromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// FromEnv reads the environment without loading .env or validating
func FromEnv() *Config {
	return &Config{
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		DBPath:          getEnv("DB_PATH", "./data/secret_notes.db"),
		DBEncryptionKey: getEnv("DB_ENCRYPTION_KEY", ""),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StoreTimeout:    getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		NoteRetention:   getEnvAsDuration("NOTE_RETENTION", 7*24*time.Hour),
		PurgeDelay:      getEnvAsDuration("PURGE_DELAY", 60*time.Second),
		SweepInterval:   getEnvAsDuration("SWEEP_INTERVAL", time.Hour),
		AuditLogPath:    getEnv("AUDIT_LOG_PATH", "./logs/audit.log"),
		AuditAsyncMode:  getEnvAsBool("AUDIT_ASYNC_MODE", true),
		RateLimitRPS:    getEnvAsInt("RATE_LIMIT_REQUESTS_PER_SECOND", 10),
		RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 20),
		UnlockRateRPS:   getEnvAsInt("UNLOCK_RATE_REQUESTS_PER_SECOND", 1),
		UnlockRateBurst: getEnvAsInt("UNLOCK_RATE_BURST", 5),
		Environment:     getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
	}
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite:
		if c.DBEncryptionKey == "" {
			return fmt.Errorf("DB_ENCRYPTION_KEY is required")
		}
		if len(c.DBEncryptionKey) < 32 {
			return fmt.Errorf("DB_ENCRYPTION_KEY must be at least 32 characters")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSQLite, BackendRedis, c.StoreBackend)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}
	if c.IsProduction() && u.Scheme != "https" {
		return fmt.Errorf("BASE_URL must use https in production, got %q", c.BaseURL)
	}

	if c.NoteRetention <= 0 {
		return fmt.Errorf("NOTE_RETENTION must be positive")
	}

	if c.PurgeDelay < 0 {
		return fmt.Errorf("PURGE_DELAY must not be negative")
	}

	if c.SweepInterval < 0 {
		return fmt.Errorf("SWEEP_INTERVAL must not be negative")
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 || c.UnlockRateRPS <= 0 || c.UnlockRateBurst <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	return nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
