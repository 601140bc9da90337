// Package quote orchestrates pricing requests: tier resolution, the advisory
// result cache and the calculators.
package quote

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vnmchuo/pricing-service/internal/cache"
	"github.com/vnmchuo/pricing-service/internal/catalog"
	"github.com/vnmchuo/pricing-service/internal/metrics"
	"github.com/vnmchuo/pricing-service/internal/pricing"
	"github.com/vnmchuo/pricing-service/internal/quotelog"
	"github.com/vnmchuo/pricing-service/internal/requestid"
)

const (
	DefaultCacheTimeout = 250 * time.Millisecond
	DefaultROITier      = catalog.Professional
)

// Recorder receives every served pricing quote. Implementations must not block.
type Recorder interface {
	Record(entry *quotelog.Entry) bool
}

type PricingRequest struct {
	Tier         string
	Assets       int64
	BillingCycle string
}

type ROIRequest struct {
	Tier      string // empty means DefaultROITier
	Portfolio pricing.Portfolio
}

type Options struct {
	CacheTTL     time.Duration
	CacheTimeout time.Duration
	Recorder     Recorder // optional
}

type Service struct {
	catalog  *catalog.Catalog
	calc     *pricing.Calculator
	cache    cache.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
	ttl      time.Duration
	timeout  time.Duration
	recorder Recorder
	group    singleflight.Group
}

func NewService(c *catalog.Catalog, store cache.Store, m *metrics.Metrics, logger *zap.Logger, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.DefaultTTL
	}
	if opts.CacheTimeout <= 0 {
		opts.CacheTimeout = DefaultCacheTimeout
	}
	return &Service{
		catalog:  c,
		calc:     pricing.NewCalculator(c),
		cache:    store,
		metrics:  m,
		logger:   logger,
		ttl:      opts.CacheTTL,
		timeout:  opts.CacheTimeout,
		recorder: opts.Recorder,
	}
}

// Price returns the quote for req, from the cache when possible. Errors wrap
// catalog.ErrUnknownTier or pricing.ErrInvalidArgument for bad input; cache
// failures are logged and never returned.
func (s *Service) Price(ctx context.Context, req PricingRequest) (*pricing.Quote, error) {
	tier, err := s.catalog.Lookup(req.Tier)
	if err != nil {
		return nil, err
	}
	cycle, err := pricing.ParseBillingCycle(req.BillingCycle)
	if err != nil {
		return nil, err
	}
	if err := pricing.ValidateAssets(req.Assets); err != nil {
		return nil, err
	}

	key := cache.Key(tier.Name, req.Assets, cycle)

	if q, ok := s.lookup(ctx, key); ok {
		q.Cached = true
		s.metrics.Quote("pricing", tier.Name)
		s.record(ctx, q)
		return q, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Identical concurrent misses share one computation and one cache write.
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		q, err := s.calc.Price(tier, req.Assets, cycle)
		if err != nil {
			return nil, err
		}
		s.store(ctx, key, q)
		return q, nil
	})
	if err != nil {
		return nil, err
	}

	q := *v.(*pricing.Quote)
	q.Cached = false
	s.metrics.Quote("pricing", tier.Name)
	s.record(ctx, &q)
	return &q, nil
}

// ROI compares the tier against traditional filing. ROI results are not cached.
func (s *Service) ROI(ctx context.Context, req ROIRequest) (*pricing.ROI, error) {
	name := req.Tier
	if name == "" {
		name = DefaultROITier
	}
	tier, err := s.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := s.calc.ROI(tier, req.Portfolio)
	if err != nil {
		return nil, err
	}
	s.metrics.Quote("roi", tier.Name)
	return r, nil
}

// CacheStatus reports "connected" or "disconnected".
func (s *Service) CacheStatus(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 4*s.timeout)
	defer cancel()
	if err := s.cache.Ping(ctx); err != nil {
		s.logger.Warn("cache ping failed", zap.Error(err))
		return "disconnected"
	}
	return "connected"
}

func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Service) lookup(ctx context.Context, key string) (*pricing.Quote, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		s.metrics.CacheOperation("get", metrics.ResultHit)
		return q, true
	case errors.Is(err, cache.ErrMiss):
		s.metrics.CacheOperation("get", metrics.ResultMiss)
	default:
		s.metrics.CacheOperation("get", metrics.ResultError)
		s.logger.Warn("cache read failed, computing quote",
			zap.String("key", key),
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.Error(err),
		)
	}
	return nil, false
}

// store writes q without the caller's cancellation: other callers may be
// waiting on the same flight.
func (s *Service) store(ctx context.Context, key string, q *pricing.Quote) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.cache.Set(ctx, key, q, s.ttl); err != nil {
		s.metrics.CacheOperation("set", metrics.ResultError)
		s.logger.Warn("cache write failed, serving uncached quote",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	s.metrics.CacheOperation("set", metrics.ResultOK)
}

func (s *Service) record(ctx context.Context, q *pricing.Quote) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(&quotelog.Entry{
		RequestID:    requestid.FromContext(ctx),
		Tier:         q.Tier,
		BillingCycle: string(q.BillingCycle),
		Assets:       q.Assets,
		TotalMonthly: q.TotalMonthly,
		TotalAnnual:  q.TotalAnnual,
		Cached:       q.Cached,
	})
}
