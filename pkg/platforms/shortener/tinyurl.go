// Package shortener turns long build links into short ones through a
// TinyURL-style "api-create" endpoint.
package shortener

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/buildnotify/pkg/errors"
	"github.com/kart-io/buildnotify/pkg/logger"
)

const (
	// DefaultEndpoint is TinyURL's plain-text creation API.
	DefaultEndpoint = "http://tinyurl.com/api-create.php"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1024
	platformName   = "shortener"
)

// Client calls the shortening endpoint.
type Client struct {
	endpoint string
	client   *http.Client
	logger   logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the timeout on a copy of the current HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.client
			hc.Timeout = d
			c.client = &hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = logger.OrDiscard(l)
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestURL builds the GET URL for longURL. Only spaces are escaped, as
// %20; everything else is passed through as the endpoint expects.
func (c *Client) RequestURL(longURL string) string {
	return c.endpoint + "?url=" + strings.ReplaceAll(longURL, " ", "%20")
}

// Shorten returns the short form of longURL: the first 1024 bytes of a 200
// response body, verbatim.
func (c *Client) Shorten(ctx context.Context, longURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(longURL), nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrShortenFailed, "create request").WithPlatform(platformName)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrConnectionFailed, "shorten request failed").WithPlatform(platformName)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Shortener returned non-OK status", "status", resp.StatusCode)
		return "", errors.Newf(errors.ErrShortenFailed, "non-OK response code back from shortener: %d", resp.StatusCode).
			WithPlatform(platformName).
			WithMetadata("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrShortenFailed, "read response").WithPlatform(platformName)
	}
	return string(body), nil
}
