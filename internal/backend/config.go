package backend

import (
	"fmt"
	"time"

	"housebudget/internal/budget"
	"housebudget/internal/config"
	"housebudget/internal/core"
	"housebudget/internal/metrics"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	Cache     CacheType
	RedisAddr string
	CacheTTL  time.Duration
	CacheSize int

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Household core.Household
	Bands     budget.Bands
	Metrics   *metrics.Metrics
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, m *metrics.Metrics) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	household, err := appConfig.Household()
	if err != nil {
		return Config{}, fmt.Errorf("parse household: %w", err)
	}
	bands, err := appConfig.Bands()
	if err != nil {
		return Config{}, fmt.Errorf("parse stamp duty bands: %w", err)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,

		Cache:     CacheType(appConfig.CacheBackend),
		RedisAddr: appConfig.RedisAddr,
		CacheTTL:  appConfig.CacheTTL,
		CacheSize: appConfig.CacheSize,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		Household: household,
		Bands:     bands,
		Metrics:   m,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	}

	if c.Cache == RedisCache && c.RedisAddr == "" {
		return fmt.Errorf("redis address is required for redis cache")
	}
	if len(c.Household.Members) == 0 {
		return core.ErrEmptyHousehold
	}

	return nil
}
