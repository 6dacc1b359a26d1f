// Package config provides the configuration system for buildnotify
package config

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/buildnotify/pkg/errors"
	"github.com/kart-io/buildnotify/pkg/policy"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultServiceName = "buildnotify"
)

// Gateway is the process-wide gateway configuration. It carries the SMS
// account credentials and the build system base URL.
type Gateway struct {
	APIKey   string `yaml:"api_key" json:"api_key"`
	Msisdn   string `yaml:"msisdn" json:"msisdn"`
	Password string `yaml:"password" json:"password"`
	BaseURL  string `yaml:"base_url" json:"base_url"`

	// Endpoint overrides, empty means the built-in public endpoints.
	GatewayURL   string `yaml:"gateway_url,omitempty" json:"gateway_url,omitempty"`
	ShortenerURL string `yaml:"shortener_url,omitempty" json:"shortener_url,omitempty"`

	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// RateLimit caps messages per minute, 0 means unlimited.
	RateLimit int `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
}

// MarshalJSON writes Timeout as a duration string such as "30s", the
// same form YAML and the command line use.
func (g Gateway) MarshalJSON() ([]byte, error) {
	type plain Gateway
	out := struct {
		plain
		Timeout string `json:"timeout,omitempty"`
	}{plain: plain(g)}
	if g.Timeout > 0 {
		out.Timeout = g.Timeout.String()
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts Timeout as a duration string or as integer
// nanoseconds. Fields absent from data keep their current value.
func (g *Gateway) UnmarshalJSON(data []byte) error {
	type plain Gateway
	in := struct {
		*plain
		Timeout json.RawMessage `json:"timeout,omitempty"`
	}{plain: (*plain)(g)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Timeout) == 0 || string(in.Timeout) == "null" {
		return nil
	}
	d, err := parseJSONDuration(in.Timeout)
	if err != nil {
		return errors.NewConfigError("timeout: %v", err)
	}
	g.Timeout = d
	return nil
}

func parseJSONDuration(raw json.RawMessage) (time.Duration, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return time.ParseDuration(s)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(n), nil
}

// Notifier is the per-job notification configuration. It is read-only
// once a notifier has been built from it.
type Notifier struct {
	Message        string `yaml:"message" json:"message"`
	CulpritMessage string `yaml:"culprit_message,omitempty" json:"culprit_message,omitempty"`
	Recipients     string `yaml:"recipients" json:"recipients"`
	UserList       string `yaml:"user_list,omitempty" json:"user_list,omitempty"`

	OnlyOnFailureOrRecovery policy.Flag `yaml:"only_on_failure_or_recovery" json:"only_on_failure_or_recovery"`
	IncludeURL              policy.Flag `yaml:"include_url" json:"include_url"`
	SendToCulprits          policy.Flag `yaml:"send_to_culprits" json:"send_to_culprits"`
}

// RecipientList splits Recipients on commas, in configuration order.
// Blank entries are skipped, entries are not trimmed.
func (n Notifier) RecipientList() []string {
	if n.Recipients == "" {
		return nil
	}
	parts := strings.Split(n.Recipients, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// LoggerConfig configures logging behavior
type LoggerConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// TelemetryConfig configures OpenTelemetry export
type TelemetryConfig struct {
	Enabled        bool              `yaml:"enabled" json:"enabled"`
	ServiceName    string            `yaml:"service_name" json:"service_name"`
	ServiceVersion string            `yaml:"service_version" json:"service_version"`
	Environment    string            `yaml:"environment" json:"environment"`
	OTLPEndpoint   string            `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	OTLPHeaders    map[string]string `yaml:"otlp_headers,omitempty" json:"otlp_headers,omitempty"`
	SampleRate     float64           `yaml:"sample_rate" json:"sample_rate"`
}

// StoreConfig selects where the gateway configuration is persisted.
type StoreConfig struct {
	// Backend is "file", "redis" or empty for in-memory only.
	Backend  string `yaml:"backend" json:"backend"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	RedisURL string `yaml:"redis_url,omitempty" json:"redis_url,omitempty"`
	RedisKey string `yaml:"redis_key,omitempty" json:"redis_key,omitempty"`
}

// Config represents the unified configuration structure
type Config struct {
	Gateway   Gateway         `yaml:"gateway" json:"gateway"`
	Notifier  Notifier        `yaml:"notifier" json:"notifier"`
	Logger    LoggerConfig    `yaml:"logger" json:"logger"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Store     StoreConfig     `yaml:"store" json:"store"`
}

// Option defines a functional option for configuration
type Option func(*Config) error

// New creates a new configuration with the given options
func New(opts ...Option) (*Config, error) {
	cfg := &Config{
		Gateway: Gateway{Timeout: defaultTimeout},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: defaultServiceName,
			SampleRate:  1.0,
		},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes defaults and checks structural settings. Credentials
// are not required here so that validate-only commands can run without them.
func (c *Config) Validate() error {
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = defaultTimeout
	}
	if c.Gateway.RateLimit < 0 {
		return errors.NewConfigError("gateway.rate_limit cannot be negative")
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultServiceName
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return errors.NewConfigError("telemetry.sample_rate must be between 0 and 1")
	}

	switch c.Store.Backend {
	case "", "memory":
	case "file":
		if c.Store.Path == "" {
			return errors.NewConfigError("store.path is required for the file backend")
		}
	case "redis":
		if c.Store.RedisURL == "" {
			return errors.NewConfigError("store.redis_url is required for the redis backend")
		}
	default:
		return errors.NewConfigError("unknown store backend %q", c.Store.Backend)
	}
	return nil
}
