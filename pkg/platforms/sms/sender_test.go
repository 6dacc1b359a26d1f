package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/buildnotify/pkg/errors"
)

var creds = Credentials{APIKey: "key", Msisdn: "+4366000", Password: "secret"}

func gateway(t *testing.T, status int, body string, seen *url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if seen != nil {
			*seen = r.URL.Query()
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSend_Success(t *testing.T) {
	var q url.Values
	srv := gateway(t, http.StatusOK, `{"errorCode":0,"messageId":17}`, &q)

	s := NewSender(WithEndpoint(srv.URL))
	err := s.Send(context.Background(), creds, "+15551234", "Widget build #42 is FAILURE")

	require.NoError(t, err)
	assert.Equal(t, "key", q.Get("api_key"))
	assert.Equal(t, "+4366000", q.Get("msisdn"))
	assert.Equal(t, "secret", q.Get("password"))
	assert.Equal(t, "+15551234", q.Get("recipient"))
	assert.Equal(t, "Widget build #42 is FAILURE", q.Get("message"))
}

func TestSend_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   errors.ErrorCode
	}{
		{"gateway rejects", http.StatusOK, `{"errorCode":101}`, errors.ErrGatewayRejected},
		{"non-OK status", http.StatusServiceUnavailable, ``, errors.ErrTransportFailed},
		{"not json", http.StatusOK, `<html>`, errors.ErrInvalidResponse},
		{"no errorCode", http.StatusOK, `{}`, errors.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := gateway(t, tt.status, tt.body, nil)
			err := NewSender(WithEndpoint(srv.URL)).Send(context.Background(), creds, "+1", "hi")

			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetErrorCode(err))
			assert.True(t, errors.IsDispatchError(err))
		})
	}
}

func TestSend_ConnectionFailureRedactsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	err := NewSender(WithEndpoint(endpoint)).Send(context.Background(), creds, "+1", "hi")

	require.Error(t, err)
	assert.Equal(t, errors.ErrConnectionFailed, errors.GetErrorCode(err))
	assert.NotContains(t, err.Error(), "secret")
}

func TestSend_Validation(t *testing.T) {
	s := NewSender(WithEndpoint("http://unused.invalid"))

	err := s.Send(context.Background(), creds, "", "hi")
	assert.Equal(t, errors.ErrInvalidTarget, errors.GetErrorCode(err))

	err = s.Send(context.Background(), Credentials{}, "+1", "hi")
	assert.Equal(t, errors.ErrMissingCredentials, errors.GetErrorCode(err))
}

func TestSend_RateLimitHonoursContext(t *testing.T) {
	srv := gateway(t, http.StatusOK, `{"errorCode":0}`, nil)
	s := NewSender(WithEndpoint(srv.URL), WithRateLimit(1))

	require.NoError(t, s.Send(context.Background(), creds, "+1", "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Send(ctx, creds, "+1", "second")
	require.Error(t, err)
	assert.Equal(t, errors.ErrRateLimitExceeded, errors.GetErrorCode(err))
}

func TestRequestURL_EncodesMessage(t *testing.T) {
	s := NewSender(WithEndpoint("https://gw.test/send"))
	raw := s.RequestURL(creds, "+1 555", "a&b=c")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "+1 555", u.Query().Get("recipient"))
	assert.Equal(t, "a&b=c", u.Query().Get("message"))
}

func TestWithTimeout_KeepsCustomClient(t *testing.T) {
	transport := &http.Transport{}
	hc := &http.Client{Transport: transport}

	s := NewSender(WithHTTPClient(hc), WithTimeout(5*time.Second))

	assert.Same(t, transport, s.client.Transport)
	assert.Equal(t, 5*time.Second, s.client.Timeout)
	assert.Zero(t, hc.Timeout)
}
