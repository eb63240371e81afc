package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for an agent.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// A config file can be layered in with WithConfigFile; it is applied at the
// point where the option appears, so later options still win.
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithName("MyAgent"),
//	    WithIDGenerator(GeneratorUUID),
//	    WithRedisHook("redis://localhost:6379"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	Name string `json:"name" yaml:"name" env:"AGENT_NAME" default:"MyAgent"`

	Identity  IdentityConfig  `json:"identity" yaml:"identity"`
	Hook      HookConfig      `json:"hook" yaml:"hook"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// IdentityConfig selects how identity and event ids are generated
type IdentityConfig struct {
	Generator string `json:"generator" yaml:"generator" env:"AGENT_ID_GENERATOR" default:"ulid"`
}

// HookConfig selects where emitted events go.
// The "memory" provider keeps them in process; "redis" appends them to a
// list named after the agent identity inside Namespace.
type HookConfig struct {
	Provider  string        `json:"provider" yaml:"provider" env:"AGENT_HOOK_PROVIDER" default:"memory"`
	RedisURL  string        `json:"redis_url" yaml:"redis_url" env:"AGENT_REDIS_URL,REDIS_URL"`
	RedisDB   int           `json:"redis_db" yaml:"redis_db" env:"AGENT_REDIS_DB" default:"2"`
	Namespace string        `json:"namespace" yaml:"namespace" env:"AGENT_HOOK_NAMESPACE" default:"agentlaunch:events"`
	TTL       time.Duration `json:"ttl" yaml:"ttl" env:"AGENT_HOOK_TTL" default:"1h"`
}

// UnmarshalJSON accepts ttl as a duration string ("30m") or as nanoseconds
func (h *HookConfig) UnmarshalJSON(data []byte) error {
	type plain HookConfig
	aux := struct {
		*plain
		TTL json.RawMessage `json:"ttl"`
	}{plain: (*plain)(h)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.TTL) == 0 || string(aux.TTL) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.TTL, &s); err == nil {
		ttl, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid hook ttl %q: %w", s, err)
		}
		h.TTL = ttl
		return nil
	}

	var ns int64
	if err := json.Unmarshal(aux.TTL, &ns); err != nil {
		return fmt.Errorf("hook ttl must be a duration string or nanoseconds: %w", err)
	}
	h.TTL = time.Duration(ns)
	return nil
}

// LoggingConfig contains logging configuration.
// Supports structured (JSON) and human-readable (text) formats.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"AGENT_LOG_LEVEL" default:"info"`
	Format string `json:"format" yaml:"format" env:"AGENT_LOG_FORMAT" default:"json"`
	Output string `json:"output" yaml:"output" env:"AGENT_LOG_OUTPUT" default:"stderr"`
}

// TelemetryConfig contains tracing and metrics configuration.
// Telemetry is only initialized when Enabled=true.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" env:"AGENT_TELEMETRY_ENABLED" default:"false"`
	Exporter    string `json:"exporter" yaml:"exporter" env:"AGENT_TELEMETRY_EXPORTER" default:"stdout"`
	ServiceName string `json:"service_name" yaml:"service_name" env:"AGENT_TELEMETRY_SERVICE_NAME,OTEL_SERVICE_NAME"`
	Endpoint    string `json:"endpoint" yaml:"endpoint" env:"AGENT_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool   `json:"insecure" yaml:"insecure" env:"AGENT_TELEMETRY_INSECURE" default:"true"`

	// MetricsEndpoint is the OTLP/HTTP metrics endpoint, Endpoint when empty
	MetricsEndpoint string `json:"metrics_endpoint" yaml:"metrics_endpoint" env:"AGENT_TELEMETRY_METRICS_ENDPOINT"`
}

// Hook providers
const (
	HookProviderMemory = "memory"
	HookProviderRedis  = "redis"
)

// Telemetry exporters
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
	ExporterNone   = "none"
)

// Option is a functional option for configuring an agent.
// Options are applied in order and can return an error if the configuration is invalid.
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Name: "MyAgent",
		Identity: IdentityConfig{
			Generator: GeneratorULID,
		},
		Hook: HookConfig{
			Provider:  HookProviderMemory,
			RedisDB:   RedisDBEvents,
			Namespace: DefaultHookNamespace,
			TTL:       DefaultHookTTL,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Exporter: ExporterStdout,
			Insecure: true,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables take precedence over defaults but are overridden by functional options.
//
// Returns an error if environment variables contain invalid values.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvAgentName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvIDGenerator); v != "" {
		c.Identity.Generator = strings.ToLower(v)
	}

	if v := os.Getenv(EnvHookProvider); v != "" {
		c.Hook.Provider = strings.ToLower(v)
	}
	if v := os.Getenv(EnvAgentRedisURL); v != "" {
		c.Hook.RedisURL = v
	} else if v := os.Getenv(EnvRedisURL); v != "" {
		c.Hook.RedisURL = v
	}
	if v := os.Getenv(EnvRedisDB); v != "" {
		var db int
		if _, err := fmt.Sscanf(v, "%d", &db); err != nil {
			return fmt.Errorf("invalid AGENT_REDIS_DB value %q: %w", v, ErrInvalidConfiguration)
		}
		c.Hook.RedisDB = db
	}
	if v := os.Getenv(EnvHookNamespace); v != "" {
		c.Hook.Namespace = v
	}
	if v := os.Getenv(EnvHookTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid AGENT_HOOK_TTL value %q: %w", v, ErrInvalidConfiguration)
		}
		c.Hook.TTL = ttl
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogOutput); v != "" {
		c.Logging.Output = v
	}

	if v := os.Getenv(EnvTelemetryEnabled); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv(EnvTelemetryExporter); v != "" {
		c.Telemetry.Exporter = strings.ToLower(v)
	}
	if v := os.Getenv(EnvTelemetryServiceName); v != "" {
		c.Telemetry.ServiceName = v
	} else if v := os.Getenv(EnvOTELServiceName); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv(EnvTelemetryEndpoint); v != "" {
		c.Telemetry.Endpoint = v
	} else if v := os.Getenv(EnvOTELEndpoint); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv(EnvTelemetryMetricsEndpoint); v != "" {
		c.Telemetry.MetricsEndpoint = v
	}
	if v := os.Getenv(EnvTelemetryInsecure); v != "" {
		c.Telemetry.Insecure = parseBool(v)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
// Fields missing from the file keep their current values.
//
// Example YAML:
//
//	name: MyAgent
//	hook:
//	  provider: redis
//	  redis_url: redis://localhost:6379
//	  ttl: 30m
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- path is operator supplied
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %v: %w", err, ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %v: %w", err, ErrInvalidConfiguration)
		}
	}

	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
// This method is called automatically by NewConfig().
func (c *Config) Validate() error {
	if c.Name == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "agent name is required",
			Err:     ErrMissingConfiguration,
		}
	}

	switch c.Identity.Generator {
	case GeneratorULID, GeneratorUUID:
	default:
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("unknown id generator: %s", c.Identity.Generator),
			Err:     ErrInvalidConfiguration,
		}
	}

	switch c.Hook.Provider {
	case HookProviderMemory:
	case HookProviderRedis:
		if c.Hook.RedisURL == "" {
			return &FrameworkError{
				Op:      "Config.Validate",
				Kind:    "config",
				Message: "redis URL is required for the redis hook provider",
				Err:     ErrMissingConfiguration,
			}
		}
		if c.Hook.RedisDB < 0 || c.Hook.RedisDB > redisMaxDB {
			return &FrameworkError{
				Op:      "Config.Validate",
				Kind:    "config",
				Message: fmt.Sprintf("invalid redis db: %d", c.Hook.RedisDB),
				Err:     ErrInvalidConfiguration,
			}
		}
	default:
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("unknown hook provider: %s", c.Hook.Provider),
			Err:     ErrInvalidConfiguration,
		}
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("unknown log format: %s", c.Logging.Format),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case ExporterStdout, ExporterNone:
		case ExporterOTLP:
			if c.Telemetry.Endpoint == "" {
				return &FrameworkError{
					Op:      "Config.Validate",
					Kind:    "config",
					Message: "telemetry endpoint is required for the otlp exporter",
					Err:     ErrMissingConfiguration,
				}
			}
		default:
			return &FrameworkError{
				Op:      "Config.Validate",
				Kind:    "config",
				Message: fmt.Sprintf("unknown telemetry exporter: %s", c.Telemetry.Exporter),
				Err:     ErrInvalidConfiguration,
			}
		}
	}

	return nil
}

// parseBool converts a string to a boolean value.
// Accepts: "true", "1", "yes", "on" (case-insensitive) as true.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WithName sets the agent name
func WithName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return fmt.Errorf("agent name cannot be empty: %w", ErrInvalidConfiguration)
		}
		c.Name = name
		return nil
	}
}

// WithIDGenerator selects the id generator ("ulid" or "uuid")
func WithIDGenerator(generator string) Option {
	return func(c *Config) error {
		c.Identity.Generator = strings.ToLower(generator)
		return nil
	}
}

// WithMemoryHook keeps emitted events in process
func WithMemoryHook() Option {
	return func(c *Config) error {
		c.Hook.Provider = HookProviderMemory
		return nil
	}
}

// WithRedisHook sends emitted events to Redis at url
func WithRedisHook(url string) Option {
	return func(c *Config) error {
		c.Hook.Provider = HookProviderRedis
		c.Hook.RedisURL = url
		return nil
	}
}

// WithHookTTL sets how long a Redis event list outlives its last event
func WithHookTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl < 0 {
			return fmt.Errorf("hook TTL cannot be negative: %w", ErrInvalidConfiguration)
		}
		c.Hook.TTL = ttl
		return nil
	}
}

// WithLogLevel sets the minimum log level
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = strings.ToLower(level)
		return nil
	}
}

// WithLogFormat sets the log format ("json" or "text")
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = strings.ToLower(format)
		return nil
	}
}

// WithLogOutput sets the log destination ("stdout", "stderr" or a file path)
func WithLogOutput(output string) Option {
	return func(c *Config) error {
		c.Logging.Output = output
		return nil
	}
}

// WithTelemetry enables tracing with the given exporter
func WithTelemetry(enabled bool, exporter string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		if exporter != "" {
			c.Telemetry.Exporter = strings.ToLower(exporter)
		}
		return nil
	}
}

// WithOTLPEndpoint enables tracing exported over OTLP/gRPC to endpoint
func WithOTLPEndpoint(endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = true
		c.Telemetry.Exporter = ExporterOTLP
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithConfigFile loads configuration from a JSON or YAML file
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// NewConfig creates a new configuration with the given options.
//
// Example:
//
//	cfg, err := NewConfig(
//	    WithName("MyAgent"),
//	    WithLogLevel("debug"),
//	)
//	if err != nil {
//	    return err
//	}
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
