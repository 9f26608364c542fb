package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultListLimit is used when a filter does not set a limit.
	DefaultListLimit = 20
	// MaxListLimit caps a single page.
	MaxListLimit = 100
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SummaryRecord is one persisted summarization.
type SummaryRecord struct {
	ID              string    `json:"id"`
	Email           string    `json:"email,omitempty"`
	InputText       string    `json:"input_text"`
	SummaryText     string    `json:"summary_text"`
	TokensRequested int       `json:"tokens_requested"`
	Source          string    `json:"source"`
	UsedExternal    bool      `json:"used_external"`
	Error           string    `json:"error,omitempty"`
	ClientIP        string    `json:"client_ip,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// SummaryFilter selects records for listing, counting and purging.
type SummaryFilter struct {
	Email    string
	ClientIP string
	// Before keeps records created strictly before this time.
	Before time.Time
	Limit  int
	Offset int
}

func (f SummaryFilter) whereClause() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if email := strings.TrimSpace(f.Email); email != "" {
		conds = append(conds, "email = ?")
		args = append(args, email)
	}
	if ip := strings.TrimSpace(f.ClientIP); ip != "" {
		conds = append(conds, "client_ip = ?")
		args = append(args, ip)
	}
	if !f.Before.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, f.Before.UTC().UnixMilli())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// NormalizedLimit clamps Limit to [1, MaxListLimit], defaulting to
// DefaultListLimit.
func (f SummaryFilter) NormalizedLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// SaveSummary inserts rec, assigning an id and creation time when unset.
func (s *Store) SaveSummary(ctx context.Context, rec *SummaryRecord) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if rec == nil {
		return errors.New("summary record is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var errText sql.NullString
	if rec.Error != "" {
		errText = sql.NullString{String: rec.Error, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, s.rebind(`
		INSERT INTO summaries (id, email, input_text, summary_text, tokens_requested,
			source, used_external, error, client_ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.Email, rec.InputText, rec.SummaryText, rec.TokensRequested,
		rec.Source, boolToInt(rec.UsedExternal), errText, rec.ClientIP, rec.CreatedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	return nil
}

// GetSummary returns the record with id, or ErrNotFound.
func (s *Store) GetSummary(ctx context.Context, id string) (*SummaryRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("id is required")
	}

	row := s.DB.QueryRowContext(ctx, s.rebind(`
		SELECT id, email, input_text, summary_text, tokens_requested,
			source, used_external, error, client_ip, created_at
		FROM summaries
		WHERE id = ?
	`), id)

	rec, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch summary: %w", err)
	}
	return rec, nil
}

// ListSummaries returns records newest first.
func (s *Store) ListSummaries(ctx context.Context, f SummaryFilter) ([]SummaryRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := f.whereClause()
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, f.NormalizedLimit(), offset)

	rows, err := s.DB.QueryContext(ctx, s.rebind(fmt.Sprintf(`
		SELECT id, email, input_text, summary_text, tokens_requested,
			source, used_external, error, client_ip, created_at
		FROM summaries
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, where)), args...)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	records := []SummaryRecord{}
	for rows.Next() {
		rec, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summaries: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	return records, nil
}

// CountSummaries counts records matching f. Limit and Offset are ignored.
func (s *Store) CountSummaries(ctx context.Context, f SummaryFilter) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := f.whereClause()
	row := s.DB.QueryRowContext(ctx, s.rebind(fmt.Sprintf(`
		SELECT COUNT(*)
		FROM summaries
		%s
	`, where)), args...)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count summaries: %w", err)
	}
	return count, nil
}

// PurgeSummaries deletes records matching f. A filter without Before is
// rejected so a purge never empties the table by accident.
func (s *Store) PurgeSummaries(ctx context.Context, f SummaryFilter) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if f.Before.IsZero() {
		return 0, errors.New("purge requires a cutoff time")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	where, args := f.whereClause()
	result, err := s.DB.ExecContext(ctx, s.rebind(fmt.Sprintf(`
		DELETE FROM summaries
		%s
	`, where)), args...)
	if err != nil {
		return 0, fmt.Errorf("purge summaries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge summaries: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (*SummaryRecord, error) {
	var (
		rec          SummaryRecord
		tokens       int64
		usedExternal int64
		errText      sql.NullString
		createdAt    int64
	)
	if err := row.Scan(&rec.ID, &rec.Email, &rec.InputText, &rec.SummaryText, &tokens,
		&rec.Source, &usedExternal, &errText, &rec.ClientIP, &createdAt); err != nil {
		return nil, err
	}
	rec.TokensRequested = int(tokens)
	rec.UsedExternal = usedExternal != 0
	if errText.Valid {
		rec.Error = errText.String
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &rec, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
