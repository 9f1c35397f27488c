package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"auctionhouse/database"
)

// Config holds all application configuration.
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Redis / fast store configuration
	RedisURL string

	// NATS configuration
	NATSServers string // comma-separated NATS server addresses

	// HTTP API configuration
	HTTPAddr string

	// Auction defaults
	StartingBalance    int64
	DefaultRoundPeriod time.Duration

	// Anti-snipe configuration
	AntiSnipeTriggerWindow time.Duration
	AntiSnipeExtension     time.Duration
	AntiSnipeMaxExtensions int

	// Per-user mutex / idempotency configuration
	BidLockTTL time.Duration

	// Rate limiting, requests per window per user id
	RateLimitBidPerSecond           int
	RateLimitCreateAuctionPerMinute int
	RateLimitReadPerSecond          int

	// Debug / dev-only features
	EnableDebugMint bool

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp", or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production", or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // protects instance for test setup
)

// Get returns the global configuration instance.
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name.
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

func load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		RedisURL: getEnvWithDefault("REDIS_URL", "redis://redis:6379/0"),

		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		HTTPAddr: getEnvWithDefault("HTTP_ADDR", ":8080"),

		StartingBalance:    1000,
		DefaultRoundPeriod: getEnvDurationWithDefault("DEFAULT_ROUND_PERIOD", 5*time.Minute),

		AntiSnipeTriggerWindow: getEnvDurationWithDefault("ANTI_SNIPE_TRIGGER_WINDOW", 10*time.Second),
		AntiSnipeExtension:     getEnvDurationWithDefault("ANTI_SNIPE_EXTENSION", 5*time.Second),
		AntiSnipeMaxExtensions: getEnvIntWithDefault("ANTI_SNIPE_MAX_EXTENSIONS", 5),

		BidLockTTL: getEnvDurationWithDefault("BID_LOCK_TTL", 5*time.Second),

		RateLimitBidPerSecond:           getEnvIntWithDefault("RATE_LIMIT_BID_PER_SECOND", 5),
		RateLimitCreateAuctionPerMinute: getEnvIntWithDefault("RATE_LIMIT_CREATE_AUCTION_PER_MINUTE", 3),
		RateLimitReadPerSecond:          getEnvIntWithDefault("RATE_LIMIT_READ_PER_SECOND", 20),

		EnableDebugMint: getEnvBoolWithDefault("ENABLE_DEBUG_MINT", false),

		OTelEnabled:              getEnvBoolWithDefault("OTEL_ENABLED", true),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "auctionhouse"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: 15000,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsed, err := strconv.ParseInt(balance, 10, 64); err == nil {
			cfg.StartingBalance = parsed
		}
	}

	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil {
			cfg.OTelExportIntervalMillis = parsed
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Environment != "test" {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if cfg.DatabaseName != "" && strings.TrimSpace(cfg.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Test helpers - only use in tests.

// SetTestConfig overrides the global config instance for testing.
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing.
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests.
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		StartingBalance:        1000,
		DefaultRoundPeriod:     5 * time.Minute,
		AntiSnipeTriggerWindow:          10 * time.Second,
		AntiSnipeExtension:              5 * time.Second,
		AntiSnipeMaxExtensions:          5,
		BidLockTTL:                      5 * time.Second,
		RateLimitBidPerSecond:           5,
		RateLimitCreateAuctionPerMinute: 3,
		RateLimitReadPerSecond:          20,
		OTelEnabled:                     false,
		OTelExporterType:       "none",
	}
}
