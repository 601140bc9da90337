package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/vnmchuo/pricing-service/internal/pricing"
)

type BreakerSettings struct {
	Name             string
	FailureThreshold uint32        // consecutive failures before opening
	OpenTimeout      time.Duration // how long to skip the cache once open
	HalfOpenRequests uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             "cache",
		FailureThreshold: 5,
		OpenTimeout:      60 * time.Second,
		HalfOpenRequests: 2,
	}
}

// BreakerStore stops calling an unhealthy cache for a while. While open every
// Get and Set fails fast with gobreaker.ErrOpenState.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerStore(next Store, settings BreakerSettings, logger *zap.Logger) *BreakerStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.HalfOpenRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A caller going away says nothing about the cache.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

func (s *BreakerStore) Get(ctx context.Context, key string) (*pricing.Quote, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		q, err := s.next.Get(ctx, key)
		if errors.Is(err, ErrMiss) {
			return nil, nil
		}
		return q, err
	})
	if err != nil {
		return nil, err
	}
	q, _ := result.(*pricing.Quote)
	if q == nil {
		return nil, ErrMiss
	}
	return q, nil
}

func (s *BreakerStore) Set(ctx context.Context, key string, quote *pricing.Quote, ttl time.Duration) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Set(ctx, key, quote, ttl)
	})
	return err
}

// Ping bypasses the breaker so health checks report the real connectivity.
func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *BreakerStore) State() gobreaker.State {
	return s.cb.State()
}
