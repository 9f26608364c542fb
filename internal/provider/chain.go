package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/namelens/sumlens/internal/metrics"
	"github.com/namelens/sumlens/internal/observability"
	"github.com/namelens/sumlens/internal/provider/prompt"
)

const (
	// DefaultTimeout bounds a single provider attempt.
	DefaultTimeout = 60 * time.Second

	// DefaultPromptSlug names the prompt rendered for every attempt.
	DefaultPromptSlug = "summarize"

	logBodyLimit = 512
)

// Summary is the text produced by an external provider.
type Summary struct {
	Text     string
	Provider string
}

// Chain tries each provider in order until one returns usable text.
type Chain struct {
	Providers  []Provider
	Extractors []Extractor
	Prompts    prompt.Registry
	PromptSlug string
	Timeout    time.Duration
	Logger     *logging.Logger
}

// NewChain returns a chain with the default extractors and prompt.
func NewChain(providers []Provider, prompts prompt.Registry) *Chain {
	return &Chain{
		Providers:  providers,
		Extractors: DefaultExtractors(),
		Prompts:    prompts,
		PromptSlug: DefaultPromptSlug,
		Timeout:    DefaultTimeout,
	}
}

// Len reports how many providers the chain will try.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Providers)
}

// IDs lists provider ids in call order.
func (c *Chain) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		ids = append(ids, p.ID())
	}
	return ids
}

// RenderPrompt builds the instruction sent to every provider.
func (c *Chain) RenderPrompt(text string, tokens int) (string, error) {
	if c == nil || c.Prompts == nil {
		return fmt.Sprintf("Summarize the following text concisely in about %d tokens:\n\n%s", tokens, text), nil
	}
	slug := strings.TrimSpace(c.PromptSlug)
	if slug == "" {
		slug = DefaultPromptSlug
	}
	p, err := c.Prompts.Get(slug)
	if err != nil {
		return "", err
	}
	return p.Render(prompt.Vars{Text: text, Tokens: tokens})
}

// SummarizeExternal calls providers strictly in order and returns the first
// non-empty extraction. Providers after the first success are not called.
// When every attempt fails the error is *AllProvidersFailedError.
func (c *Chain) SummarizeExternal(ctx context.Context, text string, tokens int) (Summary, error) {
	if c == nil || len(c.Providers) == 0 {
		return Summary{}, &AllProvidersFailedError{}
	}

	rendered, err := c.RenderPrompt(text, tokens)
	if err != nil {
		return Summary{}, fmt.Errorf("render prompt: %w", err)
	}

	extractors := c.Extractors
	if len(extractors) == 0 {
		extractors = DefaultExtractors()
	}

	attempts := make([]ProviderAttempt, 0, len(c.Providers))
	for _, p := range c.Providers {
		if err := ctx.Err(); err != nil {
			break
		}

		attempt, summary := c.try(ctx, p, rendered, tokens, extractors)
		if attempt.Err == nil {
			return Summary{Text: summary, Provider: attempt.Provider}, nil
		}
		attempts = append(attempts, attempt)
	}

	if len(attempts) == 0 {
		return Summary{}, fmt.Errorf("provider chain aborted: %w", ctx.Err())
	}
	return Summary{}, &AllProvidersFailedError{Attempts: attempts}
}

func (c *Chain) try(ctx context.Context, p Provider, rendered string, tokens int, extractors []Extractor) (ProviderAttempt, string) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attemptCtx, span := observability.StartSpan(attemptCtx, "provider.generate",
		attribute.String("provider", p.ID()),
		attribute.Int("max_tokens", tokens),
	)

	start := time.Now()
	body, err := p.Generate(attemptCtx, rendered, tokens)
	attempt := ProviderAttempt{
		Provider: p.ID(),
		Body:     body,
		Duration: time.Since(start),
		Err:      err,
	}

	var summary string
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			attempt.Status = perr.StatusCode
			attempt.Body = perr.RawResponse
		}
	} else {
		attempt.Status = 200
		summary = ExtractText(body, extractors)
		if summary == "" {
			attempt.Err = errEmptyExtraction
		}
	}

	if attempt.Status > 0 {
		span.SetAttributes(attribute.Int("http.status_code", attempt.Status))
	}
	observability.EndSpan(span, attempt.Err)
	metrics.RecordProviderAttempt(attempt.Provider, attempt.Err == nil, attempt.Duration)

	if attempt.Err != nil && c.Logger != nil {
		c.Logger.Warn("provider attempt failed",
			zap.String("provider", attempt.Provider),
			zap.Int("status", attempt.Status),
			zap.Duration("duration", attempt.Duration),
			zap.String("body", truncate(attempt.Body, logBodyLimit)),
			zap.Error(attempt.Err))
	}
	return attempt, summary
}
