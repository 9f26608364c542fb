package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete application configuration.
//
// Values are layered by viper: defaults (SetDefaults), then the optional
// YAML config file, then environment variables (SUMLENS_* plus the legacy
// unprefixed names), then command line flags.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Store       StoreConfig       `mapstructure:"store"`
	Summarizer  SummarizerConfig  `mapstructure:"summarizer"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Health      HealthConfig      `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the result store. Driver is "libsql" (embedded file
// or remote Turso URL) or "postgres".
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// SummarizerConfig controls request handling.
type SummarizerConfig struct {
	SaveToStore   bool   `mapstructure:"save_to_store"`
	DefaultTokens int    `mapstructure:"default_tokens"`
	Prompt        string `mapstructure:"prompt"`
	PromptsDir    string `mapstructure:"prompts_dir"`
}

// RateLimitConfig controls the per-client fixed window.
type RateLimitConfig struct {
	PerHour   int           `mapstructure:"per_hour"`
	Window    time.Duration `mapstructure:"window"`
	Backend   string        `mapstructure:"backend"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// RedisConfig is used when rate_limit.backend is "redis".
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// ProvidersConfig describes the ordered provider chain.
type ProvidersConfig struct {
	// APIKey is shared by every chain entry that does not set its own.
	APIKey  string          `mapstructure:"api_key"`
	Timeout time.Duration   `mapstructure:"timeout"`
	Chain   []ProviderEntry `mapstructure:"chain"`
	// Order optionally reorders or subsets Chain by id.
	Order []string `mapstructure:"order"`
}

// ProviderEntry is one link of the provider chain.
type ProviderEntry struct {
	ID      string `mapstructure:"id"`
	Kind    string `mapstructure:"kind"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// PersistenceConfig bounds background result writes.
type PersistenceConfig struct {
	MaxInFlight int           `mapstructure:"max_in_flight"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: simple, structured
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TracingConfig controls the OpenTelemetry tracer provider installed by
// serve. Exporter is "none" (spans feed trace ids only) or "stdout".
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Known provider kinds.
const (
	KindGemini = "gemini"
	KindPaLM   = "palm"
	KindOpenAI = "openai"
)

// Known rate limit backends.
const (
	BackendStore  = "store"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Known trace exporters.
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// Known store drivers.
const (
	DriverLibSQL   = "libsql"
	DriverPostgres = "postgres"
)

// OrderedChain returns the provider chain after applying Order. Ids in
// Order that are not present in Chain are ignored; an empty Order keeps the
// configured order.
func (p ProvidersConfig) OrderedChain() []ProviderEntry {
	if len(p.Order) == 0 {
		return append([]ProviderEntry(nil), p.Chain...)
	}
	byID := make(map[string]ProviderEntry, len(p.Chain))
	for _, entry := range p.Chain {
		byID[strings.ToLower(strings.TrimSpace(entry.ID))] = entry
	}
	out := make([]ProviderEntry, 0, len(p.Order))
	seen := make(map[string]bool, len(p.Order))
	for _, raw := range p.Order {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" || seen[id] {
			continue
		}
		if entry, ok := byID[id]; ok {
			out = append(out, entry)
			seen[id] = true
		}
	}
	return out
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.RateLimit.PerHour <= 0 {
		return fmt.Errorf("rate_limit.per_hour must be positive, got %d", c.RateLimit.PerHour)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window)
	}
	switch strings.ToLower(strings.TrimSpace(c.RateLimit.Backend)) {
	case BackendStore, BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case DriverLibSQL, DriverPostgres:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Providers.Timeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive, got %s", c.Providers.Timeout)
	}
	for i, entry := range c.Providers.Chain {
		if strings.TrimSpace(entry.ID) == "" {
			return fmt.Errorf("providers.chain[%d]: id is required", i)
		}
		switch strings.ToLower(strings.TrimSpace(entry.Kind)) {
		case KindGemini, KindPaLM, KindOpenAI:
		default:
			return fmt.Errorf("providers.chain[%d] (%s): unknown kind %q", i, entry.ID, entry.Kind)
		}
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case TraceExporterNone, TraceExporterStdout:
		default:
			return fmt.Errorf("unknown tracing.exporter %q", c.Tracing.Exporter)
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("tracing.sample_ratio must be within [0,1], got %v", c.Tracing.SampleRatio)
		}
	}
	if c.Persistence.MaxInFlight <= 0 {
		return fmt.Errorf("persistence.max_in_flight must be positive, got %d", c.Persistence.MaxInFlight)
	}
	if c.Persistence.Timeout <= 0 {
		return fmt.Errorf("persistence.timeout must be positive, got %s", c.Persistence.Timeout)
	}
	return nil
}
