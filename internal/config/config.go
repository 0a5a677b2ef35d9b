package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"housebudget/internal/budget"
	"housebudget/internal/core"
)

const (
	defaultHousehold = "Toby:4600,Abby:5719"
)

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Storage
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// Household and tax
	HouseholdMembers string
	StampDutyBands   string

	// Cache
	CacheBackend string
	RedisAddr    string
	CacheTTL     time.Duration
	CacheSize    int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	ExportOnStart     bool
	WorkerMetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/housebudget.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		HouseholdMembers: getEnv("HOUSEHOLD_MEMBERS", defaultHousehold),
		StampDutyBands:   getEnv("STAMP_DUTY_BANDS", ""),

		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:     getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheSize:    getEnvInt("CACHE_SIZE", 16),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "housebudget"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "outgoings_replaced"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		ExportOnStart:     getEnvBool("EXPORT_ON_START", true),
		WorkerMetricsAddr: getEnv("WORKER_METRICS_ADDR", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Household parses HOUSEHOLD_MEMBERS.
func (c *Config) Household() (core.Household, error) {
	return core.ParseHousehold(c.HouseholdMembers)
}

// Bands parses STAMP_DUTY_BANDS, falling back to the current SDLT bands.
func (c *Config) Bands() (budget.Bands, error) {
	if strings.TrimSpace(c.StampDutyBands) == "" {
		return budget.DefaultBands(), nil
	}
	return budget.ParseBands(c.StampDutyBands)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [sqlite postgres]", c.DataBackend))
	}

	if _, err := c.Household(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid HOUSEHOLD_MEMBERS: %v", err))
	}
	if _, err := c.Bands(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid STAMP_DUTY_BANDS: %v", err))
	}

	switch c.CacheBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errors = append(errors, "REDIS_ADDR is required when using redis cache")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of [memory redis]", c.CacheBackend))
	}
	if c.CacheTTL < 0 || c.CacheTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be between 0 and 1 hour", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json", "tint":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [text json tint]", c.LogFormat))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
