// Package sms sends text messages through the mysms JSON gateway.
package sms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/kart-io/buildnotify/pkg/errors"
	"github.com/kart-io/buildnotify/pkg/logger"
)

const (
	// DefaultEndpoint is the gateway's send-message API.
	DefaultEndpoint = "https://api.mysms.com/json/message/send"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1024
	platformName   = "sms"
	userAgent      = "buildnotify/1"
)

// Credentials identify the sending account.
type Credentials struct {
	APIKey   string
	Msisdn   string
	Password string
}

// Response is the gateway's reply envelope. Only errorCode is interpreted.
type Response struct {
	ErrorCode *int `json:"errorCode"`
}

// Sender calls the gateway. It is safe for concurrent use.
type Sender struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   logger.Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(s *Sender) {
		if endpoint != "" {
			s.endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Sender) {
		if hc != nil {
			s.client = hc
		}
	}
}

// WithTimeout sets the timeout on a copy of the current HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			hc := *s.client
			hc.Timeout = d
			s.client = &hc
		}
	}
}

// WithRateLimit caps outbound messages per minute. Zero or less disables the cap.
func WithRateLimit(perMinute int) Option {
	return func(s *Sender) {
		if perMinute <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Sender) {
		s.logger = logger.OrDiscard(l)
	}
}

// NewSender creates a Sender.
func NewSender(opts ...Option) *Sender {
	s := &Sender{
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the platform name
func (s *Sender) Name() string {
	return platformName
}

// RequestURL builds the GET URL carrying the five gateway parameters.
func (s *Sender) RequestURL(creds Credentials, recipient, message string) string {
	q := url.Values{}
	q.Set("api_key", creds.APIKey)
	q.Set("msisdn", creds.Msisdn)
	q.Set("password", creds.Password)
	q.Set("recipient", recipient)
	q.Set("message", message)
	return s.endpoint + "?" + q.Encode()
}

// Send delivers message to recipient. A non-200 status and a 200 whose
// envelope carries a non-zero errorCode are both failures; neither is retried.
func (s *Sender) Send(ctx context.Context, creds Credentials, recipient, message string) error {
	if recipient == "" {
		return errors.New(errors.ErrInvalidTarget, "recipient is empty").WithPlatform(platformName)
	}
	if creds.APIKey == "" {
		return errors.New(errors.ErrMissingCredentials, "gateway api key is not configured").
			WithPlatform(platformName).
			WithTarget(recipient)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, errors.ErrRateLimitExceeded, "wait for send slot").
				WithPlatform(platformName).
				WithTarget(recipient)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.RequestURL(creds, recipient, message), nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "create request").WithPlatform(platformName)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		// url.Error would echo the query string, credentials included.
		return errors.Wrap(redact(err), errors.ErrConnectionFailed, "send request failed").
			WithPlatform(platformName).
			WithTarget(recipient)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.ErrTransportFailed, "non-OK response code back from gateway: %d", resp.StatusCode).
			WithPlatform(platformName).
			WithTarget(recipient).
			WithMetadata("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, errors.ErrInvalidResponse, "read response").
			WithPlatform(platformName).
			WithTarget(recipient)
	}

	var envelope Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errors.Wrap(err, errors.ErrInvalidResponse, "decode response").
			WithPlatform(platformName).
			WithTarget(recipient)
	}
	if envelope.ErrorCode == nil {
		return errors.New(errors.ErrInvalidResponse, "response has no errorCode").
			WithPlatform(platformName).
			WithTarget(recipient)
	}
	if code := *envelope.ErrorCode; code != 0 {
		return errors.Newf(errors.ErrGatewayRejected, "send message request failed with error: %d", code).
			WithPlatform(platformName).
			WithTarget(recipient).
			WithMetadata("error_code", code)
	}

	s.logger.Debug("Gateway accepted message",
		"recipient", recipient,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// redact strips the request URL from transport errors.
func redact(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return &url.Error{Op: ue.Op, URL: "[redacted]", Err: ue.Err}
	}
	return err
}
