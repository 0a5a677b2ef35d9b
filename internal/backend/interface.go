package backend

import (
	"context"

	"housebudget/internal/amqp"
	"housebudget/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles the wired household service with the resources the
// caller must release on shutdown.
type BackendResult struct {
	Service *services.HouseholdService
	Store   services.OutgoingsStore
	AMQP    *amqp.Client // nil when AMQP is disabled or unreachable
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateStore(config Config) (services.OutgoingsStore, error)
}

// BackendType selects the SQL database.
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// CacheType selects where loaded outgoings are cached.
type CacheType string

const (
	MemoryCache CacheType = "memory"
	RedisCache  CacheType = "redis"
)
