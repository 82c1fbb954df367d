package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/cyclekit/errors"
)

// Config is the application configuration for a CycleKit host process. It
// covers the scheduler knobs shared by every mounted component plus the
// transport endpoints the host exposes.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`
	// Debug enables verbose runtime tracing for every component, the
	// same switch as the CYCLEKIT_DEBUG environment variable.
	Debug bool `yaml:"debug"`

	// DispatchTurns and BootstrapTurns are the default scheduling knobs
	// applied to mounted components that do not override them.
	DispatchTurns  int `yaml:"dispatch_turns"`
	BootstrapTurns int `yaml:"bootstrap_turns"`

	HTTP HTTPConfig `yaml:"http"`
	NATS NATSConfig `yaml:"nats"`
}

// HTTPConfig configures the HTTP request driver.
type HTTPConfig struct {
	// Addr is the listen address, e.g. ":8080". Empty disables HTTP.
	Addr string `yaml:"addr"`
	// RateLimit is the sustained requests-per-second budget per process.
	// Zero means unlimited.
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the burst allowance on top of RateLimit.
	RateBurst int `yaml:"rate_burst"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// NATSConfig configures the NATS driver and diagnostics publishing.
type NATSConfig struct {
	// URL is the server URL, e.g. "nats://localhost:4222". Empty
	// disables NATS.
	URL string `yaml:"url"`
	// Name is the connection name reported to the server.
	Name string `yaml:"name"`
	// MaxReconnects caps reconnection attempts; -1 retries forever.
	MaxReconnects int `yaml:"max_reconnects"`
	// ReconnectWait is the delay between reconnection attempts.
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		DispatchTurns:  1,
		BootstrapTurns: 1,
		HTTP: HTTPConfig{
			Addr:            ":8080",
			RateLimit:       0,
			RateBurst:       0,
			ShutdownTimeout: 10 * time.Second,
		},
		NATS: NATSConfig{
			Name:          "cyclekit",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
	}
}

// Load reads a YAML configuration file, applies CYCLEKIT_* environment
// overrides on top, and validates the result. An empty path yields the
// defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is operator-supplied
		if err != nil {
			return nil, errors.WrapConfig(err, "Config", "Load", "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapConfig(err, "Config", "Load", "parse config file")
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers CYCLEKIT_* environment variables over the file values.
// Unparseable numeric values are ignored rather than fatal.
func (c *Config) applyEnv() {
	if v := os.Getenv("CYCLEKIT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CYCLEKIT_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("CYCLEKIT_DEBUG"); v != "" && v != "0" && v != "false" {
		c.Debug = true
	}
	if v := os.Getenv("CYCLEKIT_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("CYCLEKIT_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("CYCLEKIT_DISPATCH_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DispatchTurns = n
		}
	}
	if v := os.Getenv("CYCLEKIT_BOOTSTRAP_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BootstrapTurns = n
		}
	}
	if v := os.Getenv("CYCLEKIT_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.HTTP.RateLimit = f
		}
	}
}

// Validate checks the configuration for values the runtime cannot honor.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapConfig(
			fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel),
			"Config", "Validate", "log level validation")
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return errors.WrapConfig(
			fmt.Errorf("log_format %q is not one of text, json", c.LogFormat),
			"Config", "Validate", "log format validation")
	}

	if c.DispatchTurns < 1 {
		return errors.WrapConfig(
			fmt.Errorf("dispatch_turns must be at least 1, got %d", c.DispatchTurns),
			"Config", "Validate", "scheduler knob validation")
	}
	if c.BootstrapTurns < 1 {
		return errors.WrapConfig(
			fmt.Errorf("bootstrap_turns must be at least 1, got %d", c.BootstrapTurns),
			"Config", "Validate", "scheduler knob validation")
	}
	if c.HTTP.RateLimit < 0 {
		return errors.WrapConfig(
			fmt.Errorf("rate_limit must not be negative, got %v", c.HTTP.RateLimit),
			"Config", "Validate", "rate limit validation")
	}
	return nil
}
