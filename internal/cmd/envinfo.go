package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/sumlens/internal/config"
	"github.com/namelens/sumlens/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information. Secrets are reported as set or not set.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()
		identity := GetAppIdentity()

		log.Info("=== SumLens Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + identity.BinaryName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("  Env Prefix: " + identity.EnvPrefix)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		log.Info("")

		cfg, err := currentConfig()
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Server:")
		log.Info("  Host:         "+cfg.Server.Host, zap.String("host", cfg.Server.Host))
		log.Info(fmt.Sprintf("  Port:         %d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		log.Info("  Log Level:    "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		log.Info(fmt.Sprintf("  Metrics:      %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port))
		log.Info("  Config File:  "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		log.Info("")

		log.Info("Store:")
		log.Info("  Driver:       "+cfg.Store.Driver, zap.String("store_driver", cfg.Store.Driver))
		if strings.TrimSpace(cfg.Store.URL) != "" {
			log.Info("  URL:          " + redactURL(cfg.Store.URL))
		} else {
			log.Info("  Path:         "+cfg.Store.Path, zap.String("store_path", cfg.Store.Path))
		}
		log.Info(fmt.Sprintf("  Save Results: %t", cfg.Summarizer.SaveToStore))
		log.Info("")

		log.Info("Rate Limit:")
		log.Info(fmt.Sprintf("  Limit:        %d per %s", cfg.RateLimit.PerHour, cfg.RateLimit.Window))
		log.Info("  Backend:      "+cfg.RateLimit.Backend, zap.String("rate_limit_backend", cfg.RateLimit.Backend))
		log.Info("  Key Prefix:   " + cfg.RateLimit.KeyPrefix)
		if cfg.RateLimit.Backend == config.BackendRedis {
			log.Info("  Redis URL:    " + redactURL(cfg.Redis.URL))
		}
		log.Info("")

		log.Info("Providers:")
		log.Info("  Timeout:      " + cfg.Providers.Timeout.String())
		log.Info("  Prompt:       " + cfg.Summarizer.Prompt)
		for i, entry := range cfg.Providers.OrderedChain() {
			keyState := "(not set)"
			if strings.TrimSpace(entry.APIKey) != "" || strings.TrimSpace(cfg.Providers.APIKey) != "" {
				keyState = "(set)"
			}
			log.Info(fmt.Sprintf("  %d. %s kind=%s model=%s api_key=%s", i+1, entry.ID, entry.Kind, entry.Model, keyState))
		}
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

// redactURL hides everything between the scheme and the host, which is
// where credentials live in redis:// and postgres:// URLs.
func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	return raw[:scheme+3] + "***" + raw[at:]
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
