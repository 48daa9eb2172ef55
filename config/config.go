package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds the service settings read from the environment
type Config struct {
	Env  string
	Port string

	DatabaseURL   string
	MigrationsDir string

	RedisURL string

	KafkaBrokers     []string
	KafkaOrdersTopic string

	// StoreAPIBaseURL points the checkout engine at a remote store backend. Empty means
	// the engine calls this process's own services directly.
	StoreAPIBaseURL string

	SubmitTimeout     time.Duration
	ReferenceDebounce time.Duration
	SessionTTL        time.Duration
	SessionCacheSize  int

	IconDir      string
	IconCacheDir string
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:               getEnv("ENV", "development"),
		Port:              strings.TrimPrefix(getEnv("PORT", "8080"), ":"),
		MigrationsDir:     getEnv("MIGRATIONS_DIR", "migrations"),
		RedisURL:          os.Getenv("REDIS_URL"),
		KafkaOrdersTopic:  getEnv("KAFKA_ORDERS_TOPIC", "orders.created"),
		StoreAPIBaseURL:   os.Getenv("STORE_API_BASE_URL"),
		SubmitTimeout:     getDuration("CHECKOUT_SUBMIT_TIMEOUT", 15*time.Second),
		ReferenceDebounce: getDuration("REFERENCE_CHECK_DEBOUNCE", 400*time.Millisecond),
		SessionTTL:        getDuration("SESSION_TTL", 2*time.Hour),
		SessionCacheSize:  getInt("SESSION_CACHE_SIZE", 10000),
		IconDir:           getEnv("ICON_DIR", "static/icons"),
		IconCacheDir:      getEnv("ICON_CACHE_DIR", os.TempDir()),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	// a remote store backend leaves this process without a database
	dsn, err := databaseURL()
	if err != nil && cfg.StoreAPIBaseURL == "" {
		return nil, err
	}
	cfg.DatabaseURL = dsn
	return cfg, nil
}

// IsProduction reports whether ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// databaseURL returns DATABASE_URL, or builds a DSN from the DB_* variables
func databaseURL() (string, error) {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		return connStr, nil
	}

	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	dbname := os.Getenv("DB_NAME")
	if host == "" || user == "" || dbname == "" {
		return "", fmt.Errorf("database connection variables not set. Set DATABASE_URL or DB_HOST, DB_USER, DB_NAME")
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		getEnv("DB_PORT", "5432"),
		user,
		os.Getenv("DB_PASSWORD"),
		dbname,
		getEnv("DB_SSLMODE", "disable"),
	), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		zap.S().Warnf("⚠️ Config: invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		zap.S().Warnf("⚠️ Config: invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
