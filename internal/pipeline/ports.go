package pipeline

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/namelens/sumlens/internal/provider"
	"github.com/namelens/sumlens/internal/ratelimit"
	"github.com/namelens/sumlens/internal/store"
)

// RateLimiter admits or rejects one request for a client.
type RateLimiter interface {
	Admit(ctx context.Context, clientID string) (ratelimit.Decision, error)
}

// ExternalSummarizer asks hosted providers for a summary.
type ExternalSummarizer interface {
	SummarizeExternal(ctx context.Context, text string, tokens int) (provider.Summary, error)
}

// ResultStore persists finished summaries.
type ResultStore interface {
	SaveSummary(ctx context.Context, rec *store.SummaryRecord) error
}

// ResultPersister hands a record to background storage. Persist reports
// whether the write was queued; it never blocks on the write itself.
type ResultPersister interface {
	Persist(ctx context.Context, rec *store.SummaryRecord) bool
}
