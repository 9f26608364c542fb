// Package ratelimit implements the per-client fixed-window quota that gates
// summarization requests.
//
// The window is fixed, not sliding: a client that spends its quota at the
// end of one window may spend it again immediately when the next window
// starts. Bursts of up to twice the limit across a window boundary are
// accepted behaviour.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultLimit is the number of requests a client may make per window.
const DefaultLimit = 5

// DefaultWindow is the fixed window length.
const DefaultWindow = time.Hour

// DefaultKeyPrefix namespaces counter keys in shared stores.
const DefaultKeyPrefix = "summarizer:rate:"

// Counter is the state of one client's window.
type Counter struct {
	Count       int
	WindowStart time.Time
}

// CounterStore performs the read-check-write of a single admission as one
// atomic step per key.
//
// Hit resets the counter to {1, now} when it is missing or its window has
// elapsed (now - start >= window, compared in whole seconds), increments it
// when Count < limit, and leaves it untouched otherwise. It returns the
// counter after the operation and whether the request was admitted.
type CounterStore interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Counter, bool, error)
}

// CounterEntry is a stored counter together with its key.
type CounterEntry struct {
	Key string
	Counter
}

// CounterAdmin is implemented by stores that support inspection and reset.
type CounterAdmin interface {
	ListCounters(ctx context.Context, prefix string) ([]CounterEntry, error)
	DeleteCounters(ctx context.Context, keys []string) (int, error)
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed      bool
	Limit        int
	Remaining    int
	ResetSeconds int
}

// Limiter admits or rejects requests per client identifier.
type Limiter struct {
	Store     CounterStore
	Limit     int
	Window    time.Duration
	KeyPrefix string
	Clock     func() time.Time
}

// NewLimiter returns a limiter over store with the default window and
// prefix. A non-positive limit uses DefaultLimit.
func NewLimiter(store CounterStore, limit int) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Limiter{
		Store:     store,
		Limit:     limit,
		Window:    DefaultWindow,
		KeyPrefix: DefaultKeyPrefix,
	}
}

// Admit charges one request to clientID.
//
// An empty clientID is always admitted with the full limit remaining and a
// zero reset, since an unidentifiable client cannot be throttled fairly.
// When the store fails the error is returned alongside an admitting
// decision; callers decide whether to fail open.
func (l *Limiter) Admit(ctx context.Context, clientID string) (Decision, error) {
	limit := l.limit()
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || l == nil || l.Store == nil {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	window := l.window()
	now := l.now()
	counter, allowed, err := l.Store.Hit(ctx, l.Key(clientID), limit, window, now)
	if err != nil {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, fmt.Errorf("rate limit store: %w", err)
	}

	decision := Decision{
		Allowed:      allowed,
		Limit:        limit,
		ResetSeconds: resetSeconds(counter.WindowStart, now, window),
	}
	if allowed {
		decision.Remaining = limit - counter.Count
		if decision.Remaining < 0 {
			decision.Remaining = 0
		}
	}
	return decision, nil
}

// Key returns the store key for clientID.
func (l *Limiter) Key(clientID string) string {
	prefix := DefaultKeyPrefix
	if l != nil && l.KeyPrefix != "" {
		prefix = l.KeyPrefix
	}
	return prefix + clientID
}

func (l *Limiter) limit() int {
	if l == nil || l.Limit <= 0 {
		return DefaultLimit
	}
	return l.Limit
}

func (l *Limiter) window() time.Duration {
	if l == nil || l.Window <= 0 {
		return DefaultWindow
	}
	return l.Window
}

func (l *Limiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

// Expired reports whether a window that began at start has elapsed at now.
// Times are compared as whole unix seconds.
func Expired(start, now time.Time, window time.Duration) bool {
	return now.Unix()-start.Unix() >= windowSeconds(window)
}

// ResetSeconds returns the whole seconds left in a window that began at
// start, never negative.
func ResetSeconds(start, now time.Time, window time.Duration) int {
	return resetSeconds(start, now, window)
}

func resetSeconds(start, now time.Time, window time.Duration) int {
	remaining := windowSeconds(window) - (now.Unix() - start.Unix())
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

func windowSeconds(window time.Duration) int64 {
	secs := int64(window / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
