package forecastcache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
)

type cachedForecast struct {
	days      []forecast.DaySummary
	expiresAt time.Time
}

// MemoryStore is an in-process forecast cache for tests and single instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]cachedForecast
	now     func() time.Time
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]cachedForecast),
		now:     time.Now,
	}
}

// Get implements forecast.Cache.
func (s *MemoryStore) Get(_ context.Context, key string) ([]forecast.DaySummary, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.hasExpired(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]forecast.DaySummary(nil), entry.days...), true, nil
}

// Save caches the forecast; a non-positive ttl keeps it until overwritten.
func (s *MemoryStore) Save(_ context.Context, key string, days []forecast.DaySummary, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.entries[key] = cachedForecast{
		days:      append([]forecast.DaySummary(nil), days...),
		expiresAt: exp,
	}
	return nil
}

func (s *MemoryStore) hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(s.now())
}

var _ forecast.Cache = (*MemoryStore)(nil)
