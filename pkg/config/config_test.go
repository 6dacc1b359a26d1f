package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/buildnotify/pkg/errors"
	"github.com/kart-io/buildnotify/pkg/policy"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "buildnotify", cfg.Telemetry.ServiceName)
	assert.Equal(t, policy.Unset, cfg.Notifier.SendToCulprits)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"negative rate limit", []Option{WithGateway(Gateway{RateLimit: -1})}},
		{"file store without path", []Option{WithStore(StoreConfig{Backend: "file"})}},
		{"redis store without url", []Option{WithStore(StoreConfig{Backend: "redis"})}},
		{"unknown store", []Option{WithStore(StoreConfig{Backend: "etcd"})}},
		{"sample rate", []Option{WithTelemetry(TelemetryConfig{SampleRate: 2})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.IsConfigError(err))
		})
	}
}

func TestWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildnotify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway:
  api_key: k
  msisdn: "+4366000"
  password: p
  base_url: http://ci.example.com/
  timeout: 5s
notifier:
  message: "%PROJECT% build %BUILD% is %STATUS%"
  recipients: "+15551234,+15550000"
  only_on_failure_or_recovery: true
  include_url: "No"
  send_to_culprits: Yes
`), 0o600))

	cfg, err := New(WithFile(path))
	require.NoError(t, err)

	assert.Equal(t, "k", cfg.Gateway.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "http://ci.example.com/", cfg.Gateway.BaseURL)
	assert.Equal(t, []string{"+15551234", "+15550000"}, cfg.Notifier.RecipientList())
	assert.Equal(t, policy.Enabled, cfg.Notifier.OnlyOnFailureOrRecovery)
	assert.Equal(t, policy.Disabled, cfg.Notifier.IncludeURL)
	assert.Equal(t, policy.Enabled, cfg.Notifier.SendToCulprits)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestWithFile_Errors(t *testing.T) {
	_, err := New(WithFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Equal(t, errors.ErrInvalidConfig, errors.GetErrorCode(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway: [1, 2"), 0o600))
	_, err = New(WithFile(path))
	assert.Equal(t, errors.ErrInvalidConfig, errors.GetErrorCode(err))
}

func TestWithEnvDefaults(t *testing.T) {
	t.Setenv("BUILDNOTIFY_API_KEY", "env-key")
	t.Setenv("BUILDNOTIFY_MSISDN", "+4366000")
	t.Setenv("BUILDNOTIFY_TIMEOUT", "10s")
	t.Setenv("BUILDNOTIFY_RATE_LIMIT", "12")
	t.Setenv("BUILDNOTIFY_RECIPIENTS", "+1")
	t.Setenv("BUILDNOTIFY_SEND_TO_CULPRITS", "false")
	t.Setenv("BUILDNOTIFY_TELEMETRY_ENABLED", "true")

	cfg, err := New(
		WithGateway(Gateway{APIKey: "file-key", Password: "p"}),
		WithEnvDefaults(filepath.Join(t.TempDir(), "absent.env")),
	)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Gateway.APIKey)
	assert.Equal(t, "p", cfg.Gateway.Password)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 12, cfg.Gateway.RateLimit)
	assert.Equal(t, "+1", cfg.Notifier.Recipients)
	assert.Equal(t, policy.Disabled, cfg.Notifier.SendToCulprits)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestWithEnvDefaults_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BUILDNOTIFY_BASE_URL_DOTENV_TEST=http://dotenv.example.com/\n"), 0o600))
	t.Setenv("BUILDNOTIFY_BASE_URL_DOTENV_TEST", "")
	os.Unsetenv("BUILDNOTIFY_BASE_URL_DOTENV_TEST")

	_, err := New(WithEnvDefaults(path))
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv.example.com/", os.Getenv("BUILDNOTIFY_BASE_URL_DOTENV_TEST"))
}

func TestRecipientList(t *testing.T) {
	assert.Nil(t, Notifier{}.RecipientList())
	assert.Equal(t, []string{"+1", " +2"}, Notifier{Recipients: "+1,, +2,"}.RecipientList())
}

func TestGateway_JSONTimeout(t *testing.T) {
	raw, err := json.Marshal(Gateway{APIKey: "k", Timeout: 45 * time.Second})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"timeout":"45s"`)
	assert.NotContains(t, string(raw), "45000000000")

	var g Gateway
	require.NoError(t, json.Unmarshal(raw, &g))
	assert.Equal(t, 45*time.Second, g.Timeout)
	assert.Equal(t, "k", g.APIKey)

	require.NoError(t, json.Unmarshal([]byte(`{"timeout":2000000000}`), &g))
	assert.Equal(t, 2*time.Second, g.Timeout)
	assert.Equal(t, "k", g.APIKey)

	err = json.Unmarshal([]byte(`{"timeout":"soon"}`), &g)
	assert.Equal(t, errors.ErrInvalidConfig, errors.GetErrorCode(err))
}
