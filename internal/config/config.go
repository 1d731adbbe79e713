// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level papertrail configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Scholar   ScholarConfig   `yaml:"scholar"`
	LLM       LLMConfig       `yaml:"llm"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	Output    OutputConfig    `yaml:"output"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AdminToken      string        `yaml:"admin_token"` // empty = cache admin routes unauthenticated
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	MaxSize       int                      `yaml:"max_size"`
	DefaultTTL    time.Duration            `yaml:"default_ttl"`
	Coalesce      bool                     `yaml:"coalesce"`       // share in-flight producer calls per key
	SweepInterval time.Duration            `yaml:"sweep_interval"` // 0 = lazy expiry only
	TTLs          map[string]time.Duration `yaml:"ttls"`           // per key prefix, e.g. "search": 10m
}

// TTL returns the configured TTL for a key prefix, or 0 for the store default.
func (c CacheConfig) TTL(prefix string) time.Duration {
	return c.TTLs[prefix]
}

// ScholarConfig holds Semantic Scholar Graph API settings.
type ScholarConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	RPM     int64         `yaml:"rpm"` // requests per minute (0 = unlimited)
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig holds language model API settings.
type LLMConfig struct {
	Provider string        `yaml:"provider"` // "openai" (any compatible API) or "anthropic"
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	RPM      int64         `yaml:"rpm"`
	Timeout  time.Duration `yaml:"timeout"`

	MaxChunkTokens int `yaml:"max_chunk_tokens"` // translation chunk budget (0 = no chunking)
}

// BreakerConfig controls the per-upstream circuit breaker.
type BreakerConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ErrorThreshold float64       `yaml:"error_threshold"`
	MinSamples     int           `yaml:"min_samples"`
	Window         time.Duration `yaml:"window"`
	OpenTimeout    time.Duration `yaml:"open_timeout"`
}

// OutputConfig controls where generated documents are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			MaxSize:    100,
			DefaultTTL: 30 * time.Minute,
		},
		Scholar: ScholarConfig{
			BaseURL: "https://api.semanticscholar.org/graph/v1",
			RPM:     100,
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "openai",
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
			Timeout:  120 * time.Second,

			MaxChunkTokens: 2000,
		},
		Breaker: BreakerConfig{
			Enabled:        true,
			ErrorThreshold: 0.3,
			MinSamples:     10,
			Window:         time.Minute,
			OpenTimeout:    30 * time.Second,
		},
		Output: OutputConfig{Dir: "output"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{
			Tracing: TracingConfig{SampleRate: 1.0},
		},
	}
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is like Load but returns Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks values that would otherwise fail far from their source.
func (c *Config) Validate() error {
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("config: cache.max_size must be positive, got %d", c.Cache.MaxSize)
	}
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("config: cache.default_ttl must be positive, got %s", c.Cache.DefaultTTL)
	}
	for prefix, ttl := range c.Cache.TTLs {
		if ttl <= 0 {
			return fmt.Errorf("config: cache.ttls.%s must be positive, got %s", prefix, ttl)
		}
	}
	if c.Cache.SweepInterval < 0 {
		return fmt.Errorf("config: cache.sweep_interval must not be negative")
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("config: llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}
	if c.Breaker.Enabled && (c.Breaker.ErrorThreshold <= 0 || c.Breaker.ErrorThreshold > 1) {
		return fmt.Errorf("config: breaker.error_threshold must be in (0, 1], got %v", c.Breaker.ErrorThreshold)
	}
	if r := c.Telemetry.Tracing.SampleRate; r < 0 || r > 1 {
		return fmt.Errorf("config: telemetry.tracing.sample_rate must be in [0, 1], got %v", r)
	}
	return nil
}
