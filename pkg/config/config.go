package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	Env        string
	Store      StoreConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Typesense  TypesenseConfig
	Pricing    PricingConfig
	Schedule   ScheduleConfig
	Prometheus PrometheusConfig
	OTEL       OTELConfig
}

// StoreConfig selects the relational store the engine runs against
type StoreConfig struct {
	Driver   string
	Location string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// DSN overrides the individual fields when set
	DSN string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	Enabled bool
	URL     string
	APIKey  string
}

// PricingConfig tunes the price inference engine
type PricingConfig struct {
	Workers               int
	ReimbursableCodes     []int
	AvailableCode         int
	SimilarCandidateLimit int
	LockTTL               time.Duration
}

// ScheduleConfig holds the daily run times used by the scheduler
type ScheduleConfig struct {
	Times string
}

// PrometheusConfig holds the pushgateway settings for batch metrics
type PrometheusConfig struct {
	PushgatewayURL string
	Job            string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables, reading a .env file first when present
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	reimbursable, err := getEnvAsIntList("PRICING_REIMBURSABLE_CODES", []int{1, 11})
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		Store: StoreConfig{
			Driver:   strings.ToLower(getEnv("STORE_DRIVER", "")),
			Location: getEnv("STORE_LOCATION", "data/dmd.db"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "dmd"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			DSN:      getEnv("DB_DSN", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		Pricing: PricingConfig{
			Workers:               getEnvAsInt("PRICING_WORKERS", 4),
			ReimbursableCodes:     reimbursable,
			AvailableCode:         getEnvAsInt("PRICING_AVAILABLE_CODE", 1),
			SimilarCandidateLimit: getEnvAsInt("PRICING_SIMILAR_CANDIDATES", 5),
			LockTTL:               getEnvAsDuration("PRICING_LOCK_TTL", 30*time.Minute),
		},
		Schedule: ScheduleConfig{
			Times: getEnv("SCHEDULE_TIMES", "06:00;18:00"),
		},
		Prometheus: PrometheusConfig{
			PushgatewayURL: getEnv("PROMETHEUS_PUSHGATEWAY_URL", ""),
			Job:            getEnv("PROMETHEUS_JOB", "dmd_pricer"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "dmd-pricer"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	// a Postgres store without an explicit location uses the DB_* settings
	if cfg.Store.Driver == DriverPostgres && os.Getenv("STORE_LOCATION") == "" {
		cfg.Store.Location = cfg.Database.DatabaseDSN()
	}

	if cfg.Pricing.Workers <= 0 {
		return nil, fmt.Errorf("PRICING_WORKERS must be positive, got %d", cfg.Pricing.Workers)
	}
	if cfg.Pricing.SimilarCandidateLimit <= 0 {
		return nil, fmt.Errorf("PRICING_SIMILAR_CANDIDATES must be positive, got %d", cfg.Pricing.SimilarCandidateLimit)
	}

	return cfg, nil
}

// ResolveStore picks the driver for a store location. An explicit driver wins;
// otherwise Postgres URLs and key=value DSNs select Postgres and anything else is
// treated as a SQLite file path.
func (c StoreConfig) ResolveStore(location string) StoreConfig {
	resolved := StoreConfig{Driver: c.Driver, Location: strings.TrimSpace(location)}
	if resolved.Location == "" {
		resolved.Location = c.Location
	}
	if resolved.Driver != "" {
		return resolved
	}

	lower := strings.ToLower(resolved.Location)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		resolved.Driver = DriverPostgres
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname="):
		resolved.Driver = DriverPostgres
	default:
		resolved.Driver = DriverSQLite
	}
	return resolved
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvAsIntList(key string, defaultValue []int) ([]int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}

	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, part, err)
		}
		out = append(out, n)
	}
	return out, nil
}
