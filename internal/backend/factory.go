package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"housebudget/internal/amqp"
	"housebudget/internal/cache"
	"housebudget/internal/core"
	"housebudget/internal/services"
	"housebudget/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore opens the configured database and migrates it.
func (f *DefaultFactory) CreateStore(config Config) (services.OutgoingsStore, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite storage", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres storage")
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateBackend wires storage, cache and the optional AMQP publisher into a
// HouseholdService.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.CreateStore(config)
	if err != nil {
		return nil, err
	}

	cleanups := []CleanupFunc{}
	opts := []services.Option{services.WithMetrics(config.Metrics)}

	c, cacheCleanup, err := f.createCache(ctx, config)
	if err != nil {
		store.Close()
		return nil, err
	}
	if c != nil {
		opts = append(opts, services.WithCache(c))
	}
	if cacheCleanup != nil {
		cleanups = append(cleanups, cacheCleanup)
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without export events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, services.WithPublisher(amqpClient))
		}
	}

	svc := services.NewHouseholdService(store, config.Household, config.Bands, opts...)

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"cache", config.Cache,
		"members", config.Household.String(),
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Service: svc,
		Store:   store,
		AMQP:    amqpClient,
		Cleanup: func() error {
			errs := []error{svc.Close()}
			for _, fn := range cleanups {
				errs = append(errs, fn())
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createCache(ctx context.Context, config Config) (cache.Cache[[]core.Outgoing], CleanupFunc, error) {
	if config.CacheTTL <= 0 {
		f.logger.Info("Outgoings cache disabled")
		return nil, nil, nil
	}

	switch config.Cache {
	case RedisCache:
		client, err := cache.NewRedisClient(ctx, config.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		f.logger.Info("Initialized redis cache", "addr", config.RedisAddr, "ttl", config.CacheTTL)
		return cache.NewRedisCache[[]core.Outgoing](client, "housebudget", config.CacheTTL), client.Close, nil
	default:
		size := config.CacheSize
		if size < 1 {
			size = 16
		}
		lru := cache.NewLRUCache[[]core.Outgoing](size, config.CacheTTL)
		manager := cache.NewManager()
		manager.Register(lru)
		manager.StartCleanup(config.CacheTTL)
		f.logger.Info("Initialized in-memory cache", "ttl", config.CacheTTL)
		return lru, func() error { manager.Stop(); return nil }, nil
	}
}
