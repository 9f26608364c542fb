package ratelimit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps counters in process memory. It is not shared between
// instances; use the SQL or Redis store when running more than one.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]Counter
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]Counter)}
}

// Hit implements CounterStore.
func (s *MemoryStore) Hit(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Counter, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[key]
	if !ok || Expired(counter.WindowStart, now, window) {
		counter = Counter{Count: 1, WindowStart: time.Unix(now.Unix(), 0).UTC()}
		s.counters[key] = counter
		return counter, true, nil
	}
	if counter.Count < limit {
		counter.Count++
		s.counters[key] = counter
		return counter, true, nil
	}
	return counter, false, nil
}

// ListCounters implements CounterAdmin.
func (s *MemoryStore) ListCounters(_ context.Context, prefix string) ([]CounterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]CounterEntry, 0, len(s.counters))
	for key, counter := range s.counters {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		entries = append(entries, CounterEntry{Key: key, Counter: counter})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// DeleteCounters implements CounterAdmin.
func (s *MemoryStore) DeleteCounters(_ context.Context, keys []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, key := range keys {
		if _, ok := s.counters[key]; ok {
			delete(s.counters, key)
			deleted++
		}
	}
	return deleted, nil
}

// Sweep drops counters whose window has elapsed at now.
func (s *MemoryStore) Sweep(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, counter := range s.counters {
		if Expired(counter.WindowStart, now, window) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed
}
