package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/buildnotify/pkg/errors"
)

var savedGateway = Gateway{
	APIKey:    "k",
	Msisdn:    "+4366000",
	Password:  "p",
	BaseURL:   "http://ci.example.com/",
	Timeout:   15 * time.Second,
	RateLimit: 30,
}

func TestStore_SaveAndLoadFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "gateway.yaml")

	store := NewStore(Gateway{BaseURL: "http://old/"}, NewFileBackend(path), nil)
	require.NoError(t, store.Save(ctx, savedGateway))
	assert.Equal(t, savedGateway, store.Gateway())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded := NewStore(Gateway{}, NewFileBackend(path), nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, savedGateway, reloaded.Gateway())
}

func TestStore_LoadWithoutStoredConfigKeepsInitial(t *testing.T) {
	initial := Gateway{BaseURL: "http://ci/"}
	store := NewStore(initial, NewFileBackend(filepath.Join(t.TempDir(), "none.yaml")), nil)

	require.NoError(t, store.Load(context.Background()))
	assert.Equal(t, initial, store.Gateway())
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	initial := Gateway{BaseURL: "http://ci/"}
	store := NewStore(initial, nil, nil)

	err := store.Save(context.Background(), Gateway{APIKey: "k"})
	assert.Equal(t, errors.ErrMissingCredentials, errors.GetErrorCode(err))
	assert.Equal(t, initial, store.Gateway())
}

func TestStore_SnapshotIsolation(t *testing.T) {
	store := NewStore(savedGateway, nil, nil)
	snap := store.Gateway()
	snap.APIKey = "changed"
	assert.Equal(t, "k", store.Gateway().APIKey)
}

func TestOpenBackend(t *testing.T) {
	b, closeFn, err := OpenBackend(context.Background(), StoreConfig{})
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.NoError(t, closeFn())

	b, closeFn, err = OpenBackend(context.Background(), StoreConfig{Backend: "file", Path: "x.yaml"})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)
	assert.NoError(t, closeFn())

	_, _, err = OpenBackend(context.Background(), StoreConfig{Backend: "redis", RedisURL: "not a url"})
	assert.Error(t, err)
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("BUILDNOTIFY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BUILDNOTIFY_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	key := "buildnotify:test:" + t.Name()
	t.Cleanup(func() {
		client.Del(ctx, key)
		client.Close()
	})

	backend := NewRedisBackend(client, key)
	_, found, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	store := NewStore(Gateway{}, backend, nil)
	require.NoError(t, store.Save(ctx, savedGateway))

	g, found, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, savedGateway, g)
}
