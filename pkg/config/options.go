// Functional options for buildnotify configuration
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kart-io/buildnotify/pkg/errors"
	"github.com/kart-io/buildnotify/pkg/policy"
)

// EnvPrefix prefixes every environment variable read by WithEnvDefaults.
const EnvPrefix = "BUILDNOTIFY_"

// WithGateway sets the gateway configuration
func WithGateway(g Gateway) Option {
	return func(c *Config) error {
		c.Gateway = g
		return nil
	}
}

// WithNotifier sets the notifier configuration
func WithNotifier(n Notifier) Option {
	return func(c *Config) error {
		c.Notifier = n
		return nil
	}
}

// WithStore selects the persistence backend for the gateway configuration
func WithStore(s StoreConfig) Option {
	return func(c *Config) error {
		c.Store = s
		return nil
	}
}

// WithTelemetry sets the telemetry configuration
func WithTelemetry(t TelemetryConfig) Option {
	return func(c *Config) error {
		c.Telemetry = t
		return nil
	}
}

// WithDefaults applies sensible defaults
func WithDefaults() Option {
	return func(c *Config) error {
		c.Gateway.Timeout = defaultTimeout
		c.Logger.Level = "info"
		c.Logger.Format = "text"
		c.Telemetry.ServiceName = defaultServiceName
		c.Telemetry.SampleRate = 1.0
		return nil
	}
}

// WithFile overlays a YAML configuration file. Keys absent from the file
// keep their current values.
func WithFile(path string) Option {
	return func(c *Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrInvalidConfig, "read config file %s", path)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return errors.Wrapf(err, errors.ErrInvalidConfig, "parse config file %s", path)
		}
		return nil
	}
}

// WithEnvDefaults loads the given dotenv files (".env" when none are named)
// and then overlays every BUILDNOTIFY_* variable that is set. Missing dotenv
// files are ignored; variables already in the environment win over them.
func WithEnvDefaults(files ...string) Option {
	return func(c *Config) error {
		if err := godotenv.Load(files...); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(err, errors.ErrInvalidConfig, "load dotenv file")
		}

		g := &c.Gateway
		g.APIKey = getEnvOrDefault("API_KEY", g.APIKey)
		g.Msisdn = getEnvOrDefault("MSISDN", g.Msisdn)
		g.Password = getEnvOrDefault("PASSWORD", g.Password)
		g.BaseURL = getEnvOrDefault("BASE_URL", g.BaseURL)
		g.GatewayURL = getEnvOrDefault("GATEWAY_URL", g.GatewayURL)
		g.ShortenerURL = getEnvOrDefault("SHORTENER_URL", g.ShortenerURL)
		g.Timeout = getEnvDurationOrDefault("TIMEOUT", g.Timeout)
		g.RateLimit = getEnvIntOrDefault("RATE_LIMIT", g.RateLimit)

		n := &c.Notifier
		n.Message = getEnvOrDefault("MESSAGE", n.Message)
		n.CulpritMessage = getEnvOrDefault("CULPRIT_MESSAGE", n.CulpritMessage)
		n.Recipients = getEnvOrDefault("RECIPIENTS", n.Recipients)
		n.UserList = getEnvOrDefault("USER_LIST", n.UserList)
		n.OnlyOnFailureOrRecovery = getEnvFlagOrDefault("ONLY_ON_FAILURE_OR_RECOVERY", n.OnlyOnFailureOrRecovery)
		n.IncludeURL = getEnvFlagOrDefault("INCLUDE_URL", n.IncludeURL)
		n.SendToCulprits = getEnvFlagOrDefault("SEND_TO_CULPRITS", n.SendToCulprits)

		c.Logger.Level = getEnvOrDefault("LOG_LEVEL", c.Logger.Level)
		c.Logger.Format = getEnvOrDefault("LOG_FORMAT", c.Logger.Format)

		t := &c.Telemetry
		t.Enabled = getEnvBoolOrDefault("TELEMETRY_ENABLED", t.Enabled)
		t.ServiceName = getEnvOrDefault("SERVICE_NAME", t.ServiceName)
		t.ServiceVersion = getEnvOrDefault("SERVICE_VERSION", t.ServiceVersion)
		t.Environment = getEnvOrDefault("ENVIRONMENT", t.Environment)
		t.OTLPEndpoint = getEnvOrDefault("OTLP_ENDPOINT", t.OTLPEndpoint)
		if v := os.Getenv(EnvPrefix + "SAMPLE_RATE"); v != "" {
			if rate, err := strconv.ParseFloat(v, 64); err == nil {
				t.SampleRate = rate
			}
		}

		s := &c.Store
		s.Backend = getEnvOrDefault("STORE", s.Backend)
		s.Path = getEnvOrDefault("STORE_PATH", s.Path)
		s.RedisURL = getEnvOrDefault("REDIS_URL", s.RedisURL)
		s.RedisKey = getEnvOrDefault("REDIS_KEY", s.RedisKey)
		return nil
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvFlagOrDefault(key string, defaultValue policy.Flag) policy.Flag {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return policy.ParseFlag(value)
	}
	return defaultValue
}
