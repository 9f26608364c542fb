// Package pipeline turns a summarization request into a response: it
// validates input, charges the client's quota, asks external providers for
// a summary, falls back to extractive summarization when they all fail and
// hands the result to background storage.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/namelens/sumlens/internal/metrics"
	"github.com/namelens/sumlens/internal/observability"
	"github.com/namelens/sumlens/internal/provider"
	"github.com/namelens/sumlens/internal/ratelimit"
	"github.com/namelens/sumlens/internal/store"
	"github.com/namelens/sumlens/internal/summarize"
)

// DefaultTokens is the budget used when a request does not give a usable one.
const DefaultTokens = 100

// Request is one inbound summarization call.
type Request struct {
	Text     string
	Tokens   int
	ClientID string
	Email    string
}

// Response is returned for every resolved request, including fallbacks.
type Response struct {
	Summary      string `json:"summary"`
	Saved        bool   `json:"saved"`
	Remaining    int    `json:"remaining"`
	UsedExternal bool   `json:"used_external"`
	Error        string `json:"error,omitempty"`

	// Source is the provider id or summarize.Source.
	Source    string             `json:"-"`
	RecordID  string             `json:"-"`
	RateLimit ratelimit.Decision `json:"-"`
}

// Pipeline wires the collaborators of a summarization request.
type Pipeline struct {
	Limiter       RateLimiter
	External      ExternalSummarizer
	Persister     ResultPersister
	SaveToStore   bool
	DefaultTokens int
	Logger        *logging.Logger
	Clock         func() time.Time
}

// Summarize runs one request through validation, the rate limit, the
// provider chain and the extractive fallback.
//
// Only *InvalidInputError and *RateLimitExceededError are returned; every
// other failure is absorbed into a successful Response.
func (p *Pipeline) Summarize(ctx context.Context, req Request) (*Response, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.summarize",
		attribute.Bool("client.identified", strings.TrimSpace(req.ClientID) != ""),
	)

	resp, err := p.summarize(ctx, req)
	observability.EndSpan(span, err)
	return resp, err
}

func (p *Pipeline) summarize(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		metrics.RecordSummarizeRequest(metrics.OutcomeInvalid)
		return nil, &InvalidInputError{Field: "text", Reason: "Text is required"}
	}

	tokens := req.Tokens
	if tokens <= 0 {
		tokens = p.defaultTokens()
	}

	decision, err := p.admit(ctx, req.ClientID)
	if err != nil {
		if l := p.logger(); l != nil {
			l.Error("rate limit check failed, admitting request",
				zap.String("client_id", req.ClientID),
				zap.Error(err))
		}
	}
	metrics.RecordRateLimitDecision(decision.Allowed)
	if !decision.Allowed {
		metrics.RecordSummarizeRequest(metrics.OutcomeRateLimited)
		return nil, &RateLimitExceededError{Decision: decision}
	}

	text := normalize(req.Text)
	resp := &Response{
		Remaining: decision.Remaining,
		RateLimit: decision,
	}

	summary, err := p.external(ctx, text, tokens)
	if err == nil {
		resp.Summary = summary.Text
		resp.Source = summary.Provider
		resp.UsedExternal = true
	} else {
		resp.Summary = summarize.Summarize(text, summarize.SentenceBudget(tokens))
		resp.Source = summarize.Source
		resp.Error = diagnostic(err)
		if l := p.logger(); l != nil {
			l.Warn("external providers failed, using extractive fallback",
				zap.String("client_id", req.ClientID),
				zap.String("diagnostic", resp.Error))
		}
	}
	metrics.RecordSummarySource(resp.Source)

	if p.SaveToStore && p.Persister != nil {
		rec := &store.SummaryRecord{
			ID:              uuid.NewString(),
			Email:           strings.TrimSpace(req.Email),
			InputText:       text,
			SummaryText:     resp.Summary,
			TokensRequested: tokens,
			Source:          resp.Source,
			UsedExternal:    resp.UsedExternal,
			Error:           resp.Error,
			ClientIP:        strings.TrimSpace(req.ClientID),
			CreatedAt:       p.now(),
		}
		resp.RecordID = rec.ID
		resp.Saved = p.Persister.Persist(ctx, rec)
	}

	metrics.RecordSummarizeRequest(metrics.OutcomeResolved)
	return resp, nil
}

// SummarizeOffline runs only the extractive summarizer.
func SummarizeOffline(text string, tokens int) string {
	if tokens <= 0 {
		tokens = DefaultTokens
	}
	return summarize.Summarize(normalize(text), summarize.SentenceBudget(tokens))
}

func (p *Pipeline) admit(ctx context.Context, clientID string) (ratelimit.Decision, error) {
	if p.Limiter == nil {
		return ratelimit.Decision{Allowed: true}, nil
	}
	return p.Limiter.Admit(ctx, clientID)
}

func (p *Pipeline) external(ctx context.Context, text string, tokens int) (provider.Summary, error) {
	if p.External == nil {
		return provider.Summary{}, &AllProvidersFailedError{}
	}
	return p.External.SummarizeExternal(ctx, text, tokens)
}

// diagnostic is the advisory error attached to a fallback response.
func diagnostic(err error) string {
	var all *AllProvidersFailedError
	if errors.As(err, &all) {
		return all.Diagnostic()
	}
	return err.Error()
}

func (p *Pipeline) defaultTokens() int {
	if p.DefaultTokens > 0 {
		return p.DefaultTokens
	}
	return DefaultTokens
}

func (p *Pipeline) now() time.Time {
	if p.Clock != nil {
		return p.Clock().UTC()
	}
	return time.Now().UTC()
}

func (p *Pipeline) logger() *logging.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return observability.ServerLogger
}

// normalize collapses all whitespace runs to single spaces.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
