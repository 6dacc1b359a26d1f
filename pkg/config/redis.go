package config

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kart-io/buildnotify/pkg/errors"
)

// DefaultRedisKey is the hash holding the gateway configuration.
const DefaultRedisKey = "buildnotify:gateway"

// RedisBackend stores the gateway configuration in a Redis hash.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend wraps an existing client
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key}
}

// NewRedisBackendFromURL connects using a redis:// URL and pings the server.
func NewRedisBackendFromURL(ctx context.Context, rawURL, key string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidConfig, "parse redis url")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.ErrConnectionFailed, "redis connection failed").
			WithPlatform("redis")
	}
	return NewRedisBackend(client, key), nil
}

// Load reads the hash
func (b *RedisBackend) Load(ctx context.Context) (Gateway, bool, error) {
	var g Gateway
	fields, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return g, false, errors.Wrap(err, errors.ErrConnectionFailed, "read gateway configuration").
			WithPlatform("redis")
	}
	if len(fields) == 0 {
		return g, false, nil
	}

	g.APIKey = fields["api_key"]
	g.Msisdn = fields["msisdn"]
	g.Password = fields["password"]
	g.BaseURL = fields["base_url"]
	g.GatewayURL = fields["gateway_url"]
	g.ShortenerURL = fields["shortener_url"]
	if v := fields["timeout"]; v != "" {
		if g.Timeout, err = time.ParseDuration(v); err != nil {
			return g, false, errors.Wrap(err, errors.ErrInvalidConfig, "stored timeout")
		}
	}
	if v := fields["rate_limit"]; v != "" {
		if g.RateLimit, err = strconv.Atoi(v); err != nil {
			return g, false, errors.Wrap(err, errors.ErrInvalidConfig, "stored rate_limit")
		}
	}
	return g, true, nil
}

// Save replaces the hash in a single transaction.
func (b *RedisBackend) Save(ctx context.Context, g Gateway) error {
	values := map[string]interface{}{
		"api_key":       g.APIKey,
		"msisdn":        g.Msisdn,
		"password":      g.Password,
		"base_url":      g.BaseURL,
		"gateway_url":   g.GatewayURL,
		"shortener_url": g.ShortenerURL,
		"timeout":       g.Timeout.String(),
		"rate_limit":    strconv.Itoa(g.RateLimit),
	}

	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.key)
		pipe.HSet(ctx, b.key, values)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrConnectionFailed, "write gateway configuration").
			WithPlatform("redis")
	}
	return nil
}

// Close closes the underlying client
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
