package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"housebudget/internal/amqp"
	"housebudget/internal/budget"
	"housebudget/internal/cache"
	"housebudget/internal/core"
	"housebudget/internal/metrics"
	"housebudget/internal/storage"
)

// ErrDataUnavailable means outgoings could not be loaded. Callers must show
// that state rather than treat the household as having no outgoings.
var ErrDataUnavailable = errors.New("data unavailable")

const outgoingsCacheKey = "outgoings"

// publishTimeout bounds how long a save waits on the broker.
const publishTimeout = 5 * time.Second

// OutgoingsStore is the persistence the service depends on.
type OutgoingsStore interface {
	ListOutgoings(ctx context.Context) ([]core.Outgoing, error)
	ReplaceOutgoings(ctx context.Context, person string, records []core.Outgoing) error
	Ping(ctx context.Context) error
	Close() error
}

// Publisher announces saved outgoings to other processes.
type Publisher interface {
	PublishOutgoingsReplaced(ctx context.Context, msg *amqp.OutgoingsReplacedMessage) error
	Close() error
}

// HouseholdService orchestrates outgoings across storage, cache and AMQP.
type HouseholdService struct {
	store     OutgoingsStore
	cache     cache.Cache[[]core.Outgoing]
	publisher Publisher
	household core.Household
	bands     budget.Bands
	metrics   *metrics.Metrics

	// cacheMu orders cache fills against invalidations. generation moves on
	// every committed save, so a load that started before the save cannot
	// repopulate the cache with the old rows.
	cacheMu    sync.Mutex
	generation uint64
}

type Option func(*HouseholdService)

func WithCache(c cache.Cache[[]core.Outgoing]) Option {
	return func(s *HouseholdService) { s.cache = c }
}

func WithPublisher(p Publisher) Option {
	return func(s *HouseholdService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *HouseholdService) { s.metrics = m }
}

func NewHouseholdService(store OutgoingsStore, household core.Household, bands budget.Bands, opts ...Option) *HouseholdService {
	s := &HouseholdService{
		store:     store,
		household: household,
		bands:     bands,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HouseholdService) Household() core.Household { return s.household }

func (s *HouseholdService) Bands() budget.Bands { return s.bands }

// Outgoings returns every stored record. Any load failure is reported as
// ErrDataUnavailable wrapping the cause.
func (s *HouseholdService) Outgoings(ctx context.Context) ([]core.Outgoing, error) {
	if s.cache != nil {
		if records, ok := s.cache.Get(ctx, outgoingsCacheKey); ok {
			s.metrics.ObserveLoad("cache")
			return records, nil
		}
	}

	gen := s.currentGeneration()
	records, err := s.store.ListOutgoings(ctx)
	if err != nil {
		s.metrics.ObserveLoad("error")
		slog.ErrorContext(ctx, "Failed to load outgoings", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	s.metrics.ObserveLoad("store")

	if s.cache != nil {
		s.cacheMu.Lock()
		if s.generation == gen {
			s.cache.Set(ctx, outgoingsCacheKey, records)
		}
		s.cacheMu.Unlock()
	}
	return records, nil
}

func (s *HouseholdService) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// invalidate drops cached outgoings after a committed save.
func (s *HouseholdService) invalidate(ctx context.Context) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	if s.cache != nil {
		s.cache.Delete(ctx, outgoingsCacheKey)
	}
}

// OutgoingsFor returns one member's records.
func (s *HouseholdService) OutgoingsFor(ctx context.Context, person string) ([]core.Outgoing, error) {
	if _, ok := s.household.Lookup(person); !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownPerson, person)
	}
	all, err := s.Outgoings(ctx)
	if err != nil {
		return nil, err
	}
	return filterPerson(all, person), nil
}

// ReplaceOutgoings validates and stores the complete set of a member's
// outgoings. An empty set clears them. On failure the previous records are
// kept and the error satisfies errors.Is(err, storage.ErrSave).
func (s *HouseholdService) ReplaceOutgoings(ctx context.Context, person string, records []core.Outgoing) error {
	if _, ok := s.household.Lookup(person); !ok {
		s.metrics.ObserveSave("invalid")
		return fmt.Errorf("%w: %s", core.ErrUnknownPerson, person)
	}

	if len(records) > core.MaxOutgoingsPerPerson {
		s.metrics.ObserveSave("invalid")
		return fmt.Errorf("%w: at most %d per person", core.ErrTooManyOutgoings, core.MaxOutgoingsPerPerson)
	}

	clean := make([]core.Outgoing, 0, len(records))
	for i, r := range records {
		r.Person = person
		r.Label = strings.TrimSpace(r.Label)
		if err := r.Validate(); err != nil {
			s.metrics.ObserveSave("invalid")
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		clean = append(clean, r)
	}

	if err := s.store.ReplaceOutgoings(ctx, person, clean); err != nil {
		s.metrics.ObserveSave("error")
		slog.ErrorContext(ctx, "Failed to save outgoings", "person", person, "error", err)
		if !errors.Is(err, storage.ErrSave) {
			err = &storage.SaveError{Person: person, Err: err}
		}
		return err
	}
	s.metrics.ObserveSave("ok")
	s.invalidate(ctx)

	total := core.TotalOutgoings(clean)
	slog.InfoContext(ctx, "Outgoings saved",
		"person", person,
		"count", len(clean),
		"total", core.FormatGBP(total))

	if err := s.publish(ctx, person, len(clean), total); err != nil {
		// The save already committed; the export catches up on the next one.
		slog.ErrorContext(ctx, "Failed to publish outgoings replaced message",
			"person", person, "error", err)
	}
	return nil
}

func (s *HouseholdService) publish(ctx context.Context, person string, count int, total core.Money) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping replace message")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return s.publisher.PublishOutgoingsReplaced(ctx, amqp.NewOutgoingsReplacedMessage(person, count, total.Pence))
}

// Ready reports whether storage can be reached.
func (s *HouseholdService) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// Close closes both storage and AMQP connections
func (s *HouseholdService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close household service: %w", errors.Join(errs...))
	}

	return nil
}

func filterPerson(records []core.Outgoing, person string) []core.Outgoing {
	out := make([]core.Outgoing, 0, len(records))
	for _, r := range records {
		if r.Person == person {
			out = append(out, r)
		}
	}
	return out
}
