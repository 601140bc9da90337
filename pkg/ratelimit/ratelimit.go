// Package ratelimit limits requests per client over a sliding minute.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	extratelimit "github.com/vnmchuo/ratelimiter"
)

// Limiter is a thin wrapper around github.com/vnmchuo/ratelimiter
type Limiter struct {
	store extratelimit.Limiter
	limit int64
}

// NewLimiter allows rpm requests per client per minute, counted in Redis.
func NewLimiter(rdb *redis.Client, rpm int64) *Limiter {
	store := extratelimit.NewRedisStore(rdb,
		extratelimit.WithLimit(int(rpm)),
		extratelimit.WithWindow(time.Minute),
	)
	return &Limiter{store: store, limit: rpm}
}

func NewTestLimiter(store extratelimit.Limiter, rpm int64) *Limiter {
	return &Limiter{store: store, limit: rpm}
}

func (l *Limiter) Limit() int64 {
	return l.limit
}

// Allow counts one request for clientID.
func (l *Limiter) Allow(ctx context.Context, clientID string) (bool, error) {
	res, err := l.store.Allow(ctx, key(clientID))
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

func key(clientID string) string {
	return fmt.Sprintf("ratelimit:client:%s", clientID)
}
