// Package config provides centralized configuration management for sumlens.
// Defaults are registered on a viper instance, a YAML file and the
// environment are layered on top, and the result is decoded into Config
// with mapstructure hooks.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/namelens/sumlens/internal/appid"
	"github.com/spf13/viper"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields.
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetDefaults registers default configuration values on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Store defaults
	v.SetDefault("store.driver", DriverLibSQL)
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Summarizer defaults
	v.SetDefault("summarizer.save_to_store", true)
	v.SetDefault("summarizer.default_tokens", 100)
	v.SetDefault("summarizer.prompt", "summarize")
	v.SetDefault("summarizer.prompts_dir", "")

	// Rate limit defaults
	v.SetDefault("rate_limit.per_hour", 5)
	v.SetDefault("rate_limit.window", "1h")
	v.SetDefault("rate_limit.backend", BackendStore)
	v.SetDefault("rate_limit.key_prefix", "summarizer:rate:")

	v.SetDefault("redis.url", "redis://localhost:6379/0")

	// Provider defaults
	v.SetDefault("providers.api_key", "")
	v.SetDefault("providers.timeout", "60s")
	v.SetDefault("providers.order", []string{})
	v.SetDefault("providers.chain", []map[string]any{
		{"id": "gemini", "kind": KindGemini, "model": "gemini-2.5-flash"},
		{"id": "text-bison", "kind": KindPaLM, "model": "text-bison-001"},
	})

	// Persistence defaults
	v.SetDefault("persistence.max_in_flight", 64)
	v.SetDefault("persistence.timeout", "5s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", TraceExporterNone)
	v.SetDefault("tracing.sample_ratio", 1.0)

	// Health check defaults
	v.SetDefault("health.enabled", true)
}

// BindEnv enables SUMLENS_<SECTION>_<KEY> lookups on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(strings.TrimSuffix(appid.Get().EnvPrefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the configuration held by v. Short-form environment
// variables (see getEnvSpecs) and legacy unprefixed names are merged first,
// then runtimeOverrides are applied on top of everything.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	if v == nil {
		return nil, fmt.Errorf("viper instance is nil")
	}

	legacy, err := gfconfig.LoadEnvOverrides(getLegacyEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load legacy environment overrides: %w", err)
	}
	if len(legacy) > 0 {
		if err := v.MergeConfigMap(legacy); err != nil {
			return nil, fmt.Errorf("failed to merge legacy environment overrides: %w", err)
		}
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if len(envOverrides) > 0 {
		if err := v.MergeConfigMap(envOverrides); err != nil {
			return nil, fmt.Errorf("failed to merge environment overrides: %w", err)
		}
	}

	for _, overrides := range runtimeOverrides {
		for key, value := range flatten("", overrides) {
			v.Set(key, value)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	cfg.RateLimit.Backend = strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend))
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Tracing.Exporter = strings.ToLower(strings.TrimSpace(cfg.Tracing.Exporter))

	setConfig(cfg)

	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// getEnvSpecs returns the short-form environment variables, e.g.
// SUMLENS_PORT for server.port.
func getEnvSpecs() []EnvVarSpec {
	prefix := appid.Get().EnvPrefix
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		{Name: prefix + "API_KEY", Path: []string{"providers", "api_key"}, Type: EnvString},
		{Name: prefix + "PROVIDER_ORDER", Path: []string{"providers", "order"}, Type: EnvString},
		{Name: prefix + "PROVIDER_TIMEOUT", Path: []string{"providers", "timeout"}, Type: EnvString},

		{Name: prefix + "RATE_LIMIT", Path: []string{"rate_limit", "per_hour"}, Type: EnvInt},
		{Name: prefix + "RATE_LIMIT_BACKEND", Path: []string{"rate_limit", "backend"}, Type: EnvString},
		{Name: prefix + "REDIS_URL", Path: []string{"redis", "url"}, Type: EnvString},

		{Name: prefix + "SAVE_TO_STORE", Path: []string{"summarizer", "save_to_store"}, Type: EnvBool},
		{Name: prefix + "PROMPTS_DIR", Path: []string{"summarizer", "prompts_dir"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		{Name: prefix + "TRACING_ENABLED", Path: []string{"tracing", "enabled"}, Type: EnvBool},
		{Name: prefix + "TRACING_EXPORTER", Path: []string{"tracing", "exporter"}, Type: EnvString},

		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},
	}
}

// getLegacyEnvSpecs maps the unprefixed variable names older deployments
// use. Prefixed variables win when both are set.
func getLegacyEnvSpecs() []EnvVarSpec {
	return []EnvVarSpec{
		{Name: "GOOGLE_GENERATIVE_API_KEY", Path: []string{"providers", "api_key"}, Type: EnvString},
		{Name: "SUMMARIZER_SAVE_TO_DB", Path: []string{"summarizer", "save_to_store"}, Type: EnvBool},
		{Name: "RATE_LIMIT_PER_HOUR", Path: []string{"rate_limit", "per_hour"}, Type: EnvInt},
	}
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, in map[string]any) map[string]any {
	out := map[string]any{}
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := in[key].(map[string]any); ok {
			for k, v := range flatten(full, nested) {
				out[k] = v
			}
			continue
		}
		out[full] = in[key]
	}
	return out
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.Get().ConfigName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(appid.Get().ConfigName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	identity := appid.Get()
	dataDir := gfconfig.GetAppDataDir(identity.ConfigName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + identity.BinaryName + ".db"
	}
	return filepath.Join(dataDir, identity.BinaryName+".db")
}
