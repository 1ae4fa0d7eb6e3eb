package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// THREATCORR_ENGINE_CACHE_TTL_SECONDS=600.
const EnvPrefix = "THREATCORR"

// Config holds all application configuration.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// EngineConfig tunes the correlation and scoring engine.
type EngineConfig struct {
	CacheEnabled             bool    `mapstructure:"cache_enabled" yaml:"cache_enabled"`
	CacheTTLSeconds          int     `mapstructure:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	MinCorrelationScore      float64 `mapstructure:"min_correlation_score" yaml:"min_correlation_score"`
	ExploitAvailableWeight   float64 `mapstructure:"exploit_available_weight" yaml:"exploit_available_weight"`
	ActiveExploitationWeight float64 `mapstructure:"active_exploitation_weight" yaml:"active_exploitation_weight"`
	// Matcher selects the component/CVE matcher: "coarse" or "catalogue".
	Matcher string `mapstructure:"matcher" yaml:"matcher"`
}

// Component matcher names.
const (
	MatcherCoarse    = "coarse"
	MatcherCatalogue = "catalogue"
)

// CacheTTL returns the cache time-to-live as a duration.
func (e EngineConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLSeconds) * time.Second
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests" yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window" yaml:"rate_limit_window"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	SlowRequest       time.Duration `mapstructure:"slow_request" yaml:"slow_request"`
}

// StorageConfig locates the SQLite databases.
type StorageConfig struct {
	ResultsDBPath string `mapstructure:"results_db_path" yaml:"results_db_path"`
	CVEDBPath     string `mapstructure:"cve_db_path" yaml:"cve_db_path"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// TelemetryConfig toggles tracing and metrics.
type TelemetryConfig struct {
	TracingEnabled bool `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Engine --
	v.SetDefault("engine.cache_enabled", true)
	v.SetDefault("engine.cache_ttl_seconds", 3600)
	v.SetDefault("engine.min_correlation_score", 0.5)
	v.SetDefault("engine.exploit_available_weight", 0.3)
	v.SetDefault("engine.active_exploitation_weight", 0.5)
	v.SetDefault("engine.matcher", MatcherCoarse)

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit_requests", 60)
	v.SetDefault("server.rate_limit_window", "1m")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.slow_request", "2s")

	// -- Storage --
	v.SetDefault("storage.results_db_path", "threatcorr.db")
	v.SetDefault("storage.cve_db_path", "cve.db")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "threatcorr")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Telemetry --
	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.metrics_enabled", true)
}

// Load reads the optional config file at path, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	return NewConfigFromViper(v)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine configuration invalid: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is a required configuration field")
	}
	if c.Server.RateLimitRequests <= 0 {
		return fmt.Errorf("server.rate_limit_requests must be a positive integer")
	}
	if c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("server.rate_limit_window must be a positive duration")
	}
	if c.Storage.ResultsDBPath == "" || c.Storage.CVEDBPath == "" {
		return fmt.Errorf("storage.results_db_path and storage.cve_db_path are required")
	}
	return nil
}

// Validate checks the engine settings.
func (e *EngineConfig) Validate() error {
	if e.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds must not be negative")
	}
	if e.MinCorrelationScore < 0.0 || e.MinCorrelationScore > 1.0 {
		return fmt.Errorf("min_correlation_score must be between 0.0 and 1.0")
	}
	if e.ExploitAvailableWeight < 0.0 || e.ExploitAvailableWeight > 1.0 {
		return fmt.Errorf("exploit_available_weight must be between 0.0 and 1.0")
	}
	if e.ActiveExploitationWeight < 0.0 || e.ActiveExploitationWeight > 1.0 {
		return fmt.Errorf("active_exploitation_weight must be between 0.0 and 1.0")
	}
	switch e.Matcher {
	case MatcherCoarse, MatcherCatalogue:
	default:
		return fmt.Errorf("matcher must be %q or %q, got %q", MatcherCoarse, MatcherCatalogue, e.Matcher)
	}
	return nil
}
