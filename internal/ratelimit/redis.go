package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript performs the fixed-window admission in one round trip. The
// counter lives in a hash {count, start}; the key expires with its window so
// idle clients do not accumulate.
var hitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local vals = redis.call('HMGET', key, 'count', 'start')
local count = tonumber(vals[1])
local start = tonumber(vals[2])

if count == nil or start == nil or now - start >= window then
  redis.call('HSET', key, 'count', 1, 'start', now)
  redis.call('EXPIRE', key, window)
  return {1, now, 1}
end

if count < limit then
  count = redis.call('HINCRBY', key, 'count', 1)
  return {count, start, 1}
end

return {count, start, 0}
`)

// RedisStore keeps counters in Redis so several instances share quotas.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient parses url and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Hit implements CounterStore.
func (s *RedisStore) Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Counter, bool, error) {
	vals, err := hitScript.Run(ctx, s.client, []string{key}, limit, windowSeconds(window), now.Unix()).Int64Slice()
	if err != nil {
		return Counter{}, false, fmt.Errorf("redis hit %s: %w", key, err)
	}
	if len(vals) != 3 {
		return Counter{}, false, fmt.Errorf("redis hit %s: unexpected reply length %d", key, len(vals))
	}
	counter := Counter{Count: int(vals[0]), WindowStart: time.Unix(vals[1], 0).UTC()}
	return counter, vals[2] == 1, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// ListCounters implements CounterAdmin using SCAN over prefix*.
func (s *RedisStore) ListCounters(ctx context.Context, prefix string) ([]CounterEntry, error) {
	var entries []CounterEntry
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		vals, err := s.client.HMGet(ctx, key, "count", "start").Result()
		if err != nil {
			return nil, fmt.Errorf("read counter %s: %w", key, err)
		}
		count, okCount := parseRedisInt(vals, 0)
		start, okStart := parseRedisInt(vals, 1)
		if !okCount || !okStart {
			continue
		}
		entries = append(entries, CounterEntry{
			Key:     key,
			Counter: Counter{Count: int(count), WindowStart: time.Unix(start, 0).UTC()},
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan counters: %w", err)
	}
	return entries, nil
}

// DeleteCounters implements CounterAdmin.
func (s *RedisStore) DeleteCounters(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	deleted, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete counters: %w", err)
	}
	return int(deleted), nil
}

func parseRedisInt(vals []interface{}, idx int) (int64, bool) {
	if idx >= len(vals) || vals[idx] == nil {
		return 0, false
	}
	raw, ok := vals[idx].(string)
	if !ok {
		return 0, false
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
