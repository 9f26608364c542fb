package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/namelens/sumlens/internal/config"
	"github.com/namelens/sumlens/internal/pipeline"
	"github.com/namelens/sumlens/internal/provider"
	"github.com/namelens/sumlens/internal/provider/prompt"
	"github.com/namelens/sumlens/internal/ratelimit"
	"github.com/namelens/sumlens/internal/store"
)

// openStore opens and migrates the configured result store.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// counterBackend is the configured counter store together with its admin
// surface and whatever must be closed with it.
type counterBackend struct {
	Store ratelimit.CounterStore
	Admin ratelimit.CounterAdmin
	Ping  func(ctx context.Context) error
	close func() error
}

func (b *counterBackend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// newCounterBackend selects the counter store for rate_limit.backend. The
// store backend reuses db.
func newCounterBackend(ctx context.Context, cfg *config.Config, db *store.Store) (*counterBackend, error) {
	switch cfg.RateLimit.Backend {
	case config.BackendMemory:
		mem := ratelimit.NewMemoryStore()
		return &counterBackend{Store: mem, Admin: mem, Ping: func(context.Context) error { return nil }}, nil
	case config.BackendRedis:
		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		rs := ratelimit.NewRedisStore(client)
		return &counterBackend{Store: rs, Admin: rs, Ping: rs.Ping, close: client.Close}, nil
	case config.BackendStore, "":
		if db == nil {
			return nil, fmt.Errorf("rate_limit.backend %q needs an open store", config.BackendStore)
		}
		return &counterBackend{Store: db, Admin: db, Ping: db.Ping}, nil
	default:
		return nil, fmt.Errorf("unknown rate_limit.backend %q", cfg.RateLimit.Backend)
	}
}

func newLimiter(cfg *config.Config, counters ratelimit.CounterStore) *ratelimit.Limiter {
	limiter := ratelimit.NewLimiter(counters, cfg.RateLimit.PerHour)
	if cfg.RateLimit.Window > 0 {
		limiter.Window = cfg.RateLimit.Window
	}
	if cfg.RateLimit.KeyPrefix != "" {
		limiter.KeyPrefix = cfg.RateLimit.KeyPrefix
	}
	return limiter
}

// newChain builds the provider chain with prompts from the embedded set
// plus summarizer.prompts_dir.
func newChain(cfg *config.Config, logger *logging.Logger) (*provider.Chain, error) {
	providers, err := provider.FromConfig(cfg.Providers, &http.Client{})
	if err != nil {
		return nil, err
	}
	prompts, err := prompt.BuildRegistry(cfg.Summarizer.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	if _, err := prompts.Get(cfg.Summarizer.Prompt); err != nil {
		return nil, fmt.Errorf("summarizer.prompt: %w", err)
	}

	chain := provider.NewChain(providers, prompts)
	chain.PromptSlug = cfg.Summarizer.Prompt
	chain.Timeout = cfg.Providers.Timeout
	chain.Logger = logger
	return chain, nil
}

// newPipeline assembles the request pipeline. persister may be nil.
func newPipeline(cfg *config.Config, limiter pipeline.RateLimiter, chain pipeline.ExternalSummarizer, persister pipeline.ResultPersister, logger *logging.Logger) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Limiter:       limiter,
		External:      chain,
		Persister:     persister,
		SaveToStore:   cfg.Summarizer.SaveToStore && persister != nil,
		DefaultTokens: cfg.Summarizer.DefaultTokens,
		Logger:        logger,
	}
}

// sweepMemoryCounters drops elapsed windows from an in-process counter
// store until ctx ends.
func sweepMemoryCounters(ctx context.Context, mem *ratelimit.MemoryStore, window time.Duration, logger *logging.Logger) {
	if window <= 0 {
		window = ratelimit.DefaultWindow
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := mem.Sweep(now, window); n > 0 && logger != nil {
				logger.Debug("Swept expired rate limit counters", zap.Int("count", n))
			}
		}
	}
}
