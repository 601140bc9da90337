package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/vnmchuo/pricing-service/internal/pricing"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is a process-local LRU used when no Redis is configured. It
// keeps serialized payloads so a hit never aliases a previously returned quote.
type MemoryStore struct {
	entries *lru.LRU[string, memoryEntry]
	now     func() time.Time
}

// NewMemoryStore creates a store holding at most size entries. maxTTL bounds
// how long any entry can live regardless of the ttl passed to Set.
func NewMemoryStore(size int, maxTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: lru.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*pricing.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, ok := s.entries.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if !s.now().Before(entry.expiresAt) {
		s.entries.Remove(key)
		return nil, ErrMiss
	}

	var q pricing.Quote
	if err := q.UnmarshalBinary(entry.payload); err != nil {
		s.entries.Remove(key)
		return nil, fmt.Errorf("decode cached quote %s: %w", key, err)
	}
	return &q, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, quote *pricing.Quote, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := *quote
	stored.Cached = false
	payload, err := stored.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode quote %s: %w", key, err)
	}

	s.entries.Add(key, memoryEntry{payload: payload, expiresAt: s.now().Add(ttl)})
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Len() int {
	return s.entries.Len()
}
