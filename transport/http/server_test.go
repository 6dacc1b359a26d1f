package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/buildnotify/pkg/config"
	"github.com/kart-io/buildnotify/pkg/notifier"
	"github.com/kart-io/buildnotify/pkg/platforms/sms"
	"github.com/kart-io/buildnotify/pkg/policy"
	"github.com/kart-io/buildnotify/transport/http/handlers"
)

type recordingSender struct {
	messages []string
	fail     error
}

func (r *recordingSender) Send(_ context.Context, _ sms.Credentials, recipient, message string) error {
	r.messages = append(r.messages, recipient+"|"+message)
	return r.fail
}

func newNotifier(t *testing.T, sender notifier.Sender) *notifier.Notifier {
	t.Helper()
	n, err := notifier.New(config.Notifier{
		Message:                 "%PROJECT% build %BUILD% is %STATUS%",
		Recipients:              "+15551234",
		OnlyOnFailureOrRecovery: policy.Enabled,
	}, notifier.StaticGateway{APIKey: "k", Msisdn: "+1", Password: "p"}, notifier.WithSender(sender))
	require.NoError(t, err)
	return n
}

func post(t *testing.T, srv *httptest.Server, path, contentType, body string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

const failedEvent = `{"project":"Widget","build":"#42","result":"FAILURE","previous_result":"SUCCESS","url":"job/widget/42/"}`

func TestBuilds_NotifiesAndReturnsReport(t *testing.T) {
	sender := &recordingSender{}
	srv := httptest.NewServer(NewServer(newNotifier(t, sender), nil, nil, nil).Handler())
	defer srv.Close()

	resp := post(t, srv, "/builds", "application/json", failedEvent)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.BuildResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"+15551234|Widget build #42 is FAILURE"}, sender.messages)
	assert.True(t, body.Report.Notified)
	assert.Equal(t, notifier.StatusSuccess, body.Report.Status)
	assert.NotEmpty(t, body.Log)
}

func TestBuilds_DeliveryFailureStillReturns200(t *testing.T) {
	sender := &recordingSender{fail: assert.AnError}
	srv := httptest.NewServer(NewServer(newNotifier(t, sender), nil, nil, nil).Handler())
	defer srv.Close()

	resp := post(t, srv, "/builds", "application/json", failedEvent)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.BuildResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, notifier.StatusFailed, body.Report.Status)
	assert.Equal(t, 1, body.Report.Failed)
}

func TestBuilds_AcceptsYAML(t *testing.T) {
	sender := &recordingSender{}
	srv := httptest.NewServer(NewServer(newNotifier(t, sender), nil, nil, nil).Handler())
	defer srv.Close()

	resp := post(t, srv, "/builds", "application/yaml", "project: Widget\nbuild: \"#9\"\nresult: unstable\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"+15551234|Widget build #9 is UNSTABLE"}, sender.messages)
}

func TestBuilds_RejectsBadEvents(t *testing.T) {
	srv := httptest.NewServer(NewServer(newNotifier(t, &recordingSender{}), nil, nil, nil).Handler())
	defer srv.Close()

	for _, body := range []string{`{`, `{}`, `[]`} {
		resp := post(t, srv, "/builds", "application/json", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)

		var errResp handlers.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
		assert.Equal(t, "INVALID_EVENT", errResp.Code)
	}

	resp, err := srv.Client().Get(srv.URL + "/builds")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestBuilds_RequiresAPIKeyWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(NewServer(newNotifier(t, &recordingSender{}), nil, &Config{APIKeys: []string{"s3cret"}}, nil).Handler())
	defer srv.Close()

	resp := post(t, srv, "/builds", "application/json", failedEvent)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, srv, "/builds", "application/json", failedEvent, "X-API-Key", "s3cret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, srv, "/builds", "application/json", failedEvent, "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(NewServer(newNotifier(t, &recordingSender{}), nil, &Config{Version: "1.0.0"}, nil).Handler())
	defer srv.Close()

	post(t, srv, "/builds", "application/json", failedEvent)
	post(t, srv, "/builds", "application/json", `{`)

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health handlers.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1.0.0", health.Version)
	assert.Equal(t, int64(2), health.Metrics.BuildsReceived)
	assert.Equal(t, int64(1), health.Metrics.BuildsRejected)
	assert.Equal(t, int64(1), health.Metrics.MessagesSent)
	assert.Equal(t, 1.0, health.Metrics.SuccessRate)
}

func TestConfig_SaveAndRead(t *testing.T) {
	store := config.NewStore(config.Gateway{}, nil, nil)
	srv := httptest.NewServer(NewServer(newNotifier(t, &recordingSender{}), store, &Config{APIKeys: []string{"admin"}}, nil).Handler())
	defer srv.Close()

	put := func(body string) *http.Response {
		req, err := http.NewRequest(http.MethodPut, srv.URL+"/config", bytes.NewBufferString(body))
		require.NoError(t, err)
		req.Header.Set("X-API-Key", "admin")
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := put(`{"api_key":"k"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = put(`{"api_key":"k","msisdn":"+4366000","password":"p","base_url":"http://ci.example.com/"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"p"`)
	assert.Contains(t, string(raw), "[redacted]")

	assert.Equal(t, "k", store.Gateway().APIKey)
	assert.Equal(t, "http://ci.example.com/", store.Gateway().BaseURL)
}

func TestConfig_EditedRedactedCopyKeepsSecrets(t *testing.T) {
	store := config.NewStore(config.Gateway{
		APIKey:   "realkey",
		Msisdn:   "+4366000",
		Password: "realpw",
		BaseURL:  "http://ci.example.com/",
		Timeout:  30 * time.Second,
	}, nil, nil)
	srv := httptest.NewServer(NewServer(newNotifier(t, &recordingSender{}), store, &Config{APIKeys: []string{"admin"}}, nil).Handler())
	defer srv.Close()

	do := func(method string, body io.Reader) *http.Response {
		req, err := http.NewRequest(method, srv.URL+"/config", body)
		require.NoError(t, err)
		req.Header.Set("X-API-Key", "admin")
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := do(http.MethodGet, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var current map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&current))
	assert.Equal(t, config.RedactedSecret, current["api_key"])
	assert.Equal(t, "30s", current["timeout"])

	current["base_url"] = "https://jenkins.example.com/"
	body, err := json.Marshal(current)
	require.NoError(t, err)
	resp = do(http.MethodPut, bytes.NewReader(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	saved := store.Gateway()
	assert.Equal(t, "realkey", saved.APIKey)
	assert.Equal(t, "realpw", saved.Password)
	assert.Equal(t, "https://jenkins.example.com/", saved.BaseURL)
	assert.Equal(t, 30*time.Second, saved.Timeout)

	resp = do(http.MethodPut, strings.NewReader(`{"password":"rotated"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "realkey", store.Gateway().APIKey)
	assert.Equal(t, "rotated", store.Gateway().Password)
	assert.Equal(t, "https://jenkins.example.com/", store.Gateway().BaseURL)
}

func TestConfig_NotRegisteredWithoutAPIKeys(t *testing.T) {
	store := config.NewStore(config.Gateway{}, nil, nil)
	srv := httptest.NewServer(NewServer(newNotifier(t, &recordingSender{}), store, nil, nil).Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/config")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_StopBeforeStart(t *testing.T) {
	s := NewServer(newNotifier(t, &recordingSender{}), nil, nil, nil)
	assert.NoError(t, s.Stop(context.Background()))
}

var _ handlers.Performer = (*notifier.Notifier)(nil)
