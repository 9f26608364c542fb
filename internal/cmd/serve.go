package cmd

import (
	"context"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/sumlens/internal/config"
	errwrap "github.com/namelens/sumlens/internal/errors"
	"github.com/namelens/sumlens/internal/metrics"
	"github.com/namelens/sumlens/internal/observability"
	"github.com/namelens/sumlens/internal/pipeline"
	"github.com/namelens/sumlens/internal/ratelimit"
	"github.com/namelens/sumlens/internal/server"
	"github.com/namelens/sumlens/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the summarization HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload the log level from the config file

On shutdown the server stops accepting requests, waits for queued summary
writes to finish and flushes logs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "configuration failed to load")
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		identity := GetAppIdentity()
		namespace := identity.TelemetryNamespace()

		observability.InitServerLogger(observability.ServerLoggerOptions{
			Service:   identity.BinaryName,
			Level:     cfg.Logging.Level,
			Profile:   cfg.Logging.Profile,
			Namespace: namespace,
		})
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(namespace, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}

		shutdownTracing := func(context.Context) error { return nil }
		if cfg.Tracing.Enabled {
			shutdownTracing, err = observability.InitTracing(observability.TracingOptions{
				Service:     identity.BinaryName,
				Version:     versionInfo.Version,
				Exporter:    cfg.Tracing.Exporter,
				SampleRatio: cfg.Tracing.SampleRatio,
			})
			if err != nil {
				logger.Error("Failed to initialize tracing", zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "tracing initialization failed")
			}
		}

		db, err := openStore(ctx, cfg)
		if err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "store initialization failed")
		}

		counters, err := newCounterBackend(ctx, cfg, db)
		if err != nil {
			_ = db.Close()
			return errwrap.WrapConfigInvalid(ctx, err, "rate limit backend initialization failed")
		}

		if mem, ok := counters.Store.(*ratelimit.MemoryStore); ok {
			go sweepMemoryCounters(ctx, mem, cfg.RateLimit.Window, logger)
		}

		chain, err := newChain(cfg, logger)
		if err != nil {
			_ = counters.Close()
			_ = db.Close()
			return errwrap.WrapConfigInvalid(ctx, err, "provider chain initialization failed")
		}

		persister := pipeline.NewPersister(db, cfg.Persistence.MaxInFlight, cfg.Persistence.Timeout, logger)
		pipe := newPipeline(cfg, newLimiter(cfg, counters.Store), chain, persister, logger)

		logger.Info("Initializing server",
			zap.String("service", identity.BinaryName),
			zap.String("namespace", namespace),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.Bool("tracing_enabled", cfg.Tracing.Enabled),
			zap.String("trace_exporter", cfg.Tracing.Exporter),
			zap.String("store_driver", db.Driver()),
			zap.String("rate_limit_backend", cfg.RateLimit.Backend),
			zap.Int("rate_limit_per_window", cfg.RateLimit.PerHour),
			zap.Strings("providers", chain.IDs()),
			zap.Bool("save_to_store", pipe.SaveToStore))

		handlers.InitHealthManager(versionInfo.Version)
		if cfg.Health.Enabled {
			hm := handlers.GetHealthManager()
			hm.RegisterChecker("store", handlers.CheckerFunc(db.Ping))
			hm.RegisterChecker("rate_limit_"+cfg.RateLimit.Backend, handlers.CheckerFunc(counters.Ping))
			if cfg.Metrics.Enabled {
				hm.RegisterChecker("telemetry", telemetryHealthChecker{})
			}
		}
		handlers.SetVersionInfo(versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
		handlers.SetAppIdentity(identity)
		handlers.SetProviders(chain.IDs())

		srv := server.New(server.Options{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			Summarizer:   pipe,
			Summaries:    db,
			AdminToken:   os.Getenv(identity.EnvPrefix + "ADMIN_TOKEN"),
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: HTTP server, summary writes, stores,
		// spans, then the logger.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			flushCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Warn("Failed to flush traces", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := counters.Close(); err != nil {
				logger.Warn("Failed to close rate limit backend", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				return errwrap.WrapDatabaseError(ctx, err, "store close failed")
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			drainCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if err := persister.Wait(drainCtx); err != nil {
				logger.Warn("Summary writes still pending at shutdown", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			return reloadLogLevel(ctx)
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		metrics.SetServerStartTime(time.Now().Unix())

		errChan := make(chan error, 2)
		go func() {
			errChan <- srv.Start()
		}()

		go func() {
			if err := signals.Listen(ctx); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}
		return nil
	},
}

// reloadLogLevel re-reads the config file and applies logging.level. Other
// settings need a restart.
func reloadLogLevel(ctx context.Context) error {
	logger := observability.ServerLogger
	logger.Info("Received SIGHUP: reloading configuration")

	v := viper.GetViper()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Info("No config file found - using defaults and environment variables")
			return nil
		}
		logger.Error("Failed to reload config file",
			zap.String("file", v.ConfigFileUsed()),
			zap.Error(err))
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}

	cfg, err := config.Load(v)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
	}
	appConfig = cfg

	reloaded, err := observability.NewServerLogger(observability.ServerLoggerOptions{
		Service:   GetAppIdentity().BinaryName,
		Level:     cfg.Logging.Level,
		Profile:   cfg.Logging.Profile,
		Namespace: GetAppIdentity().TelemetryNamespace(),
	})
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "logger reload failed")
	}
	observability.ServerLogger = reloaded
	reloaded.Info("Configuration reloaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.String("log_level", cfg.Logging.Level))
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
