// Package cache memoizes pricing quotes. The cache is advisory: callers treat
// every error as a miss and never fail a request because of it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vnmchuo/pricing-service/internal/pricing"
)

// DefaultTTL is how long a computed quote stays cached.
const DefaultTTL = time.Hour

var ErrMiss = errors.New("cache miss")

type Store interface {
	// Get returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, key string) (*pricing.Quote, error)
	Set(ctx context.Context, key string, quote *pricing.Quote, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// Key derives the fingerprint for a pricing request. Tier and cycle must
// already be normalized so equal requests map to the same entry.
func Key(tier string, assets int64, cycle pricing.BillingCycle) string {
	return fmt.Sprintf("pricing:%s:%d:%s", tier, assets, cycle)
}
