package store

import (
	"context"
	"errors"
	"fmt"
)

// The statements run unchanged on SQLite and PostgreSQL. Times are unix
// milliseconds for summaries and unix seconds for counters.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS summaries (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		input_text TEXT NOT NULL,
		summary_text TEXT NOT NULL,
		tokens_requested BIGINT NOT NULL,
		source TEXT NOT NULL,
		used_external INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		client_ip TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_created ON summaries(created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_email ON summaries(email);`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_client_ip ON summaries(client_ip);`,
	`CREATE TABLE IF NOT EXISTS rate_limits (
		client_key TEXT PRIMARY KEY,
		request_count BIGINT NOT NULL DEFAULT 0,
		window_start BIGINT NOT NULL,
		admitted INTEGER NOT NULL DEFAULT 1,
		updated_at BIGINT NOT NULL
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
