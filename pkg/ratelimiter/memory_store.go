package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucketState struct {
	tokens     int
	lastRefill time.Time
}

// MemoryStore keeps buckets in process memory. Buckets idle for longer than
// a full refill are dropped by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucketState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucketState)}
}

func (s *MemoryStore) ConsumeTokens(_ context.Context, key string, n int, cfg Config, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucketState{tokens: cfg.Capacity, lastRefill: now}
		s.buckets[key] = b
	}

	intervals := int64(now.Sub(b.lastRefill) / cfg.RefillInterval)
	switch {
	case intervals > int64(cfg.Capacity/cfg.RefillRate):
		b.tokens = cfg.Capacity
		b.lastRefill = now
	case intervals > 0:
		b.tokens = min(b.tokens+int(intervals)*cfg.RefillRate, cfg.Capacity)
		b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * cfg.RefillInterval)
	}

	resetAt := b.lastRefill.Add(cfg.RefillInterval)
	if b.tokens < n {
		return -1, resetAt, nil
	}
	b.tokens -= n
	return b.tokens, resetAt, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// Sweep removes buckets that would be full again by now.
func (s *MemoryStore) Sweep(cfg Config, now time.Time) int {
	full := time.Duration(cfg.Capacity/cfg.RefillRate+1) * cfg.RefillInterval

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, b := range s.buckets {
		if now.Sub(b.lastRefill) >= full {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, cfg Config, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(cfg, now)
		}
	}
}
