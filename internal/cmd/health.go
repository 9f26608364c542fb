package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/namelens/sumlens/internal/errors"
	"github.com/namelens/sumlens/internal/observability"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run a self-health check: load the configuration, open the store, reach
the rate limit backend and build the provider chain. Providers without an
API key are reported but do not fail the check; the extractive fallback
still serves requests.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("Running health check...")

		cfg, err := currentConfig()
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration failed to load",
				errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration failed to load"))
			return
		}
		logger.Info("✅ Configuration loaded")

		ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
		defer cancel()

		db, err := openStore(ctx, cfg)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Store unavailable",
				errwrap.WrapDatabaseError(ctx, err, "store unavailable"))
			return
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup
		if err := db.Ping(ctx); err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Store ping failed",
				errwrap.WrapDatabaseError(ctx, err, "store ping failed"))
			return
		}
		logger.Info("✅ Store reachable", zap.String("driver", db.Driver()))

		counters, err := newCounterBackend(ctx, cfg, db)
		if err == nil {
			defer counters.Close() // nolint:errcheck // best-effort cleanup
			err = counters.Ping(ctx)
		}
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Rate limit backend unavailable",
				errwrap.WrapConfigInvalid(ctx, err, "rate limit backend unavailable"))
			return
		}
		logger.Info("✅ Rate limit backend reachable", zap.String("backend", cfg.RateLimit.Backend))

		chain, err := newChain(cfg, logger)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Provider chain invalid",
				errwrap.WrapConfigInvalid(ctx, err, "provider chain invalid"))
			return
		}
		logger.Info("✅ Provider chain built", zap.Strings("providers", chain.IDs()))

		for _, entry := range cfg.Providers.OrderedChain() {
			key := strings.TrimSpace(entry.APIKey)
			if key == "" {
				key = strings.TrimSpace(cfg.Providers.APIKey)
			}
			if key == "" {
				logger.Warn(fmt.Sprintf("⚠️  %s has no API key; requests will fall back", entry.ID))
			}
		}

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 10*time.Second, "overall timeout for the checks")
}
