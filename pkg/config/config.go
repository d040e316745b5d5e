// Package config holds the runtime configuration for the hCaptcha monitor.
//
// Configuration is loaded from a YAML file with sane defaults for a local
// AdsPower installation. All timers and limits that exist in the system live
// here: the HTTP timeout, the global API throttle interval, the retry budget,
// and the profile cache TTL. The monitoring loops themselves carry no timers.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for one monitor process.
type Config struct {
	// APIURL is the base URL of the local AdsPower API.
	APIURL string `yaml:"api_url"`

	// APIKey is sent with every API request when non-empty.
	APIKey string `yaml:"api_key"`

	// RequestTimeoutSec is the HTTP timeout for AdsPower API calls.
	RequestTimeoutSec float64 `yaml:"request_timeout_sec"`

	// RequestDelaySec is the global minimum spacing between any two AdsPower
	// API calls, regardless of which goroutine issues them.
	RequestDelaySec float64 `yaml:"request_delay_sec"`

	// RequestRetryMax is the number of attempts for a failing API call.
	RequestRetryMax int `yaml:"request_retry_max"`

	// ProfileCacheTTLSec is how long the full profile-name cache stays fresh.
	ProfileCacheTTLSec float64 `yaml:"profile_cache_ttl_sec"`

	// ProbeTimeoutMs bounds the per-frame checkbox visibility probe.
	ProbeTimeoutMs float64 `yaml:"probe_timeout_ms"`

	// ConnectTimeoutSec bounds the single CDP connect attempt per profile.
	ConnectTimeoutSec float64 `yaml:"connect_timeout_sec"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFile, when non-empty, duplicates log output to the given file.
	LogFile string `yaml:"log_file"`

	// MaxJSONLogChars truncates JSON payloads embedded in log lines.
	MaxJSONLogChars int `yaml:"max_json_log_chars"`

	// MetricsAddr, when non-empty, serves Prometheus metrics on this address.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns the configuration used when no file is provided.
// Defaults match a stock local AdsPower installation.
func DefaultConfig() *Config {
	return &Config{
		APIURL:             "http://127.0.0.1:50325",
		RequestTimeoutSec:  10,
		RequestDelaySec:    1.5,
		RequestRetryMax:    3,
		ProfileCacheTTLSec: 180,
		ProbeTimeoutMs:     800,
		ConnectTimeoutSec:  30,
		LogLevel:           "info",
		MaxJSONLogChars:    800,
	}
}

// Load reads configuration from a YAML file. An empty path returns defaults.
// Fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the monitor cannot run with.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if c.RequestTimeoutSec <= 0 {
		return fmt.Errorf("request_timeout_sec must be positive")
	}
	if c.RequestDelaySec < 0 {
		return fmt.Errorf("request_delay_sec must not be negative")
	}
	if c.RequestRetryMax < 1 {
		return fmt.Errorf("request_retry_max must be at least 1")
	}
	if c.ProfileCacheTTLSec < 0 {
		return fmt.Errorf("profile_cache_ttl_sec must not be negative")
	}
	if c.ProbeTimeoutMs <= 0 {
		return fmt.Errorf("probe_timeout_ms must be positive")
	}
	return nil
}

// RequestTimeout returns the HTTP timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return secondsToDuration(c.RequestTimeoutSec)
}

// RequestDelay returns the global API throttle interval as a duration.
func (c *Config) RequestDelay() time.Duration {
	return secondsToDuration(c.RequestDelaySec)
}

// ProfileCacheTTL returns the profile cache TTL as a duration.
func (c *Config) ProfileCacheTTL() time.Duration {
	return secondsToDuration(c.ProfileCacheTTLSec)
}

// ProbeTimeout returns the visibility probe bound as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMs * float64(time.Millisecond))
}

// ConnectTimeout returns the CDP connect bound as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return secondsToDuration(c.ConnectTimeoutSec)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
