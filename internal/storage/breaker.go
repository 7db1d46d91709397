package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejects
// store calls to prevent cascading failures against a struggling backend.
var ErrCircuitOpen = errors.New("store circuit breaker is open")

// BreakerConfig holds the configuration for the store circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip
	// the circuit. Default: 5.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before transitioning to
	// half-open. Default: 15 seconds.
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of successes required in
	// half-open state to close the circuit again. Default: 2.
	HalfOpenMaxSuccesses uint32
}

// BreakerStore wraps a GraphStore with a circuit breaker. Intended for
// remote backends (postgres) where a dead database should fail fast instead
// of tying up request goroutines. Validation errors do not count as
// failures; only backend errors trip the circuit.
type BreakerStore struct {
	inner   GraphStore
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps the given store with default breaker settings.
func NewBreakerStore(inner GraphStore) *BreakerStore {
	return NewBreakerStoreWithConfig(inner, BreakerConfig{})
}

// NewBreakerStoreWithConfig wraps the given store with custom settings.
// Zero-valued fields fall back to defaults.
func NewBreakerStoreWithConfig(inner GraphStore, cfg BreakerConfig) *BreakerStore {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HalfOpenMaxSuccesses == 0 {
		cfg.HalfOpenMaxSuccesses = 2
	}

	settings := gobreaker.Settings{
		Name:        "GraphStore",
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// Domain errors are not backend failures.
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput)
		},
	}

	return &BreakerStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// State returns the current breaker state: "closed", "open", or "half-open".
func (s *BreakerStore) State() string {
	switch s.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func (s *BreakerStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// FindOne implements GraphStore.
func (s *BreakerStore) FindOne(ctx context.Context, label, key, value string) (Record, error) {
	result, err := s.execute(func() (interface{}, error) {
		return s.inner.FindOne(ctx, label, key, value)
	})
	if err != nil {
		return Record{}, err
	}
	return result.(Record), nil
}

// Create implements GraphStore.
func (s *BreakerStore) Create(ctx context.Context, label string, fields map[string]interface{}) (Record, error) {
	result, err := s.execute(func() (interface{}, error) {
		return s.inner.Create(ctx, label, fields)
	})
	if err != nil {
		return Record{}, err
	}
	return result.(Record), nil
}

// CreateEdge implements GraphStore.
func (s *BreakerStore) CreateEdge(ctx context.Context, from NodeRef, edgeType string, to NodeRef) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.CreateEdge(ctx, from, edgeType, to)
	})
	return err
}

// DeleteEdge implements GraphStore.
func (s *BreakerStore) DeleteEdge(ctx context.Context, from NodeRef, edgeType string, to NodeRef) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.DeleteEdge(ctx, from, edgeType, to)
	})
	return err
}

// DeleteEdges implements GraphStore.
func (s *BreakerStore) DeleteEdges(ctx context.Context, from NodeRef, edgeType string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.DeleteEdges(ctx, from, edgeType)
	})
	return err
}

// UpdateFields implements GraphStore.
func (s *BreakerStore) UpdateFields(ctx context.Context, label, key, value string, fields map[string]interface{}) (Record, error) {
	result, err := s.execute(func() (interface{}, error) {
		return s.inner.UpdateFields(ctx, label, key, value, fields)
	})
	if err != nil {
		return Record{}, err
	}
	return result.(Record), nil
}

// DeleteNode implements GraphStore.
func (s *BreakerStore) DeleteNode(ctx context.Context, label, key, value string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.DeleteNode(ctx, label, key, value)
	})
	return err
}

// Query implements GraphStore.
func (s *BreakerStore) Query(ctx context.Context, spec QuerySpec) ([]Record, error) {
	result, err := s.execute(func() (interface{}, error) {
		return s.inner.Query(ctx, spec)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Record), nil
}

// Close closes the underlying store.
func (s *BreakerStore) Close() error {
	return s.inner.Close()
}
