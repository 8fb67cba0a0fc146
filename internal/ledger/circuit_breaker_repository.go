package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"fundline/internal/config"
	"fundline/pkg/circuitbreaker"
)

// CircuitBreakerRepository guards the ledger store. When the breaker is open
// claims fail fast; the dispatcher treats that as a transient processor
// failure, so events land in the dead-letter store instead of piling up on a
// struggling database.
type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo Repository, cfg config.CircuitBreakerConfig) *CircuitBreakerRepository {
	if !cfg.Enabled {
		return &CircuitBreakerRepository{
			repo: repo,
			cb:   nil,
		}
	}

	cbConfig := circuitbreaker.DefaultConfig("ledger-store")
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.MinRequests) {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		}
	}

	return &CircuitBreakerRepository{
		repo: repo,
		cb:   circuitbreaker.NewWrapper(cbConfig),
	}
}

func (r *CircuitBreakerRepository) Claim(ctx context.Context, eventID, processorName string, staleBefore time.Time) (bool, error) {
	if r.cb == nil {
		return r.repo.Claim(ctx, eventID, processorName, staleBefore)
	}

	result, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return r.repo.Claim(ctx, eventID, processorName, staleBefore)
	})

	r.cb.RecordRequest(err == nil)

	if err != nil {
		if r.cb.IsOpen() {
			return false, fmt.Errorf("circuit breaker is open for ledger-store: %w", err)
		}
		return false, err
	}

	claimed, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("repository returned invalid result type")
	}

	return claimed, nil
}

func (r *CircuitBreakerRepository) MarkComplete(ctx context.Context, eventID, processorName string) error {
	return r.execute(ctx, func() error {
		return r.repo.MarkComplete(ctx, eventID, processorName)
	})
}

func (r *CircuitBreakerRepository) MarkFailed(ctx context.Context, eventID, processorName, reason string) error {
	return r.execute(ctx, func() error {
		return r.repo.MarkFailed(ctx, eventID, processorName, reason)
	})
}

func (r *CircuitBreakerRepository) Get(ctx context.Context, eventID, processorName string) (*Record, error) {
	if r.cb == nil {
		return r.repo.Get(ctx, eventID, processorName)
	}

	result, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return r.repo.Get(ctx, eventID, processorName)
	})

	r.cb.RecordRequest(err == nil)

	if err != nil {
		if r.cb.IsOpen() {
			return nil, fmt.Errorf("circuit breaker is open for ledger-store: %w", err)
		}
		return nil, err
	}

	record, ok := result.(*Record)
	if !ok {
		return nil, fmt.Errorf("repository returned invalid result type")
	}

	return record, nil
}

func (r *CircuitBreakerRepository) List(ctx context.Context, filter Filter) ([]Record, error) {
	return r.repo.List(ctx, filter)
}

func (r *CircuitBreakerRepository) State() string {
	if r.cb == nil {
		return "disabled"
	}
	return r.cb.State().String()
}

func (r *CircuitBreakerRepository) IsOpen() bool {
	if r.cb == nil {
		return false
	}
	return r.cb.IsOpen()
}

func (r *CircuitBreakerRepository) execute(ctx context.Context, fn func() error) error {
	if r.cb == nil {
		return fn()
	}

	_, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, fn()
	})

	r.cb.RecordRequest(err == nil)

	if err != nil && r.cb.IsOpen() {
		return fmt.Errorf("circuit breaker is open for ledger-store: %w", err)
	}
	return err
}
