package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/namelens/sumlens/internal/ratelimit"
)

// hitStatement is the whole admission in one upsert. SET expressions see
// the row as it was before the statement, and the row is locked for the
// statement, so two concurrent hits on one key cannot both take the last
// slot.
const hitStatement = `
	INSERT INTO rate_limits (client_key, request_count, window_start, admitted, updated_at)
	VALUES (?, 1, ?, 1, ?)
	ON CONFLICT(client_key) DO UPDATE SET
		request_count = CASE
			WHEN ? - rate_limits.window_start >= ? THEN 1
			WHEN rate_limits.request_count < ? THEN rate_limits.request_count + 1
			ELSE rate_limits.request_count
		END,
		admitted = CASE
			WHEN ? - rate_limits.window_start >= ? THEN 1
			WHEN rate_limits.request_count < ? THEN 1
			ELSE 0
		END,
		window_start = CASE
			WHEN ? - rate_limits.window_start >= ? THEN ?
			ELSE rate_limits.window_start
		END,
		updated_at = ?
	RETURNING request_count, window_start, admitted
`

// Hit implements ratelimit.CounterStore.
func (s *Store) Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (ratelimit.Counter, bool, error) {
	if s == nil || s.DB == nil {
		return ratelimit.Counter{}, false, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return ratelimit.Counter{}, false, errors.New("key is required")
	}

	nowSec := now.Unix()
	windowSec := int64(window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}
	lim := int64(limit)

	var (
		count    int64
		start    int64
		admitted int64
	)
	err := s.DB.QueryRowContext(ctx, s.rebind(hitStatement),
		key, nowSec, nowSec,
		nowSec, windowSec, lim,
		nowSec, windowSec, lim,
		nowSec, windowSec, nowSec,
		nowSec,
	).Scan(&count, &start, &admitted)
	if err != nil {
		return ratelimit.Counter{}, false, fmt.Errorf("rate limit hit: %w", err)
	}

	return ratelimit.Counter{
		Count:       int(count),
		WindowStart: time.Unix(start, 0).UTC(),
	}, admitted != 0, nil
}

// ListCounters implements ratelimit.CounterAdmin.
func (s *Store) ListCounters(ctx context.Context, prefix string) ([]ratelimit.CounterEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	query := `SELECT client_key, request_count, window_start FROM rate_limits`
	var args []any
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		query += ` WHERE client_key LIKE ?`
		args = append(args, escapeLike(prefix)+"%")
		if s.driver != driverPostgres {
			query += ` ESCAPE '\'`
		}
	}
	query += ` ORDER BY client_key`

	rows, err := s.DB.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []ratelimit.CounterEntry{}
	for rows.Next() {
		var (
			key   string
			count int64
			start int64
		)
		if err := rows.Scan(&key, &count, &start); err != nil {
			return nil, fmt.Errorf("scan rate limits: %w", err)
		}
		entries = append(entries, ratelimit.CounterEntry{
			Key:     key,
			Counter: ratelimit.Counter{Count: int(count), WindowStart: time.Unix(start, 0).UTC()},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	return entries, nil
}

// DeleteCounters implements ratelimit.CounterAdmin.
func (s *Store) DeleteCounters(ctx context.Context, keys []string) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		placeholders[i] = "?"
		args[i] = key
	}

	result, err := s.DB.ExecContext(ctx, s.rebind(fmt.Sprintf(
		`DELETE FROM rate_limits WHERE client_key IN (%s)`, strings.Join(placeholders, ", "))), args...)
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	return int(affected), nil
}

// escapeLike escapes LIKE wildcards; client keys may contain "_".
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
