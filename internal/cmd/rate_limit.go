package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/namelens/sumlens/internal/config"
	"github.com/namelens/sumlens/internal/store"
)

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect and reset per-client rate limit counters",
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}

// openCounterAdmin opens the configured counter backend for inspection. The
// returned close func releases the backend and, for the store backend, the
// store itself.
func openCounterAdmin(ctx context.Context, cfg *config.Config) (*counterBackend, func(), error) {
	var db *store.Store
	if cfg.RateLimit.Backend == config.BackendStore || cfg.RateLimit.Backend == "" {
		var err error
		db, err = openStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
	}
	backend, err := newCounterBackend(ctx, cfg, db)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, nil, err
	}
	closeAll := func() {
		_ = backend.Close()
		if db != nil {
			_ = db.Close()
		}
	}
	return backend, closeAll, nil
}
