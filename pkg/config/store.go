package config

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kart-io/buildnotify/pkg/errors"
	"github.com/kart-io/buildnotify/pkg/logger"
)

// Backend persists the gateway configuration.
type Backend interface {
	// Load returns the stored configuration; found is false when nothing
	// has been saved yet.
	Load(ctx context.Context) (g Gateway, found bool, err error)
	Save(ctx context.Context, g Gateway) error
}

// Store holds the process-wide gateway configuration. Readers get a
// snapshot; Save is the only mutation path.
type Store struct {
	mu      sync.RWMutex
	gateway Gateway
	backend Backend
	logger  logger.Logger
}

// NewStore creates a store seeded with initial. A nil backend keeps the
// configuration in memory only.
func NewStore(initial Gateway, backend Backend, log logger.Logger) *Store {
	return &Store{
		gateway: initial,
		backend: backend,
		logger:  logger.OrDiscard(log),
	}
}

// Gateway returns a snapshot of the current configuration
func (s *Store) Gateway() Gateway {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gateway
}

// Load replaces the in-memory configuration with the persisted one, if any.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	g, found, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}
	if !found {
		s.logger.Debug("No stored gateway configuration, keeping startup values")
		return nil
	}
	if g.Timeout <= 0 {
		g.Timeout = defaultTimeout
	}

	s.mu.Lock()
	s.gateway = g
	s.mu.Unlock()
	s.logger.Info("Loaded stored gateway configuration", "base_url", g.BaseURL)
	return nil
}

// Save validates g, persists it and then makes it current. On error the
// current configuration is left untouched.
func (s *Store) Save(ctx context.Context, g Gateway) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.Timeout <= 0 {
		g.Timeout = defaultTimeout
	}
	if s.backend != nil {
		if err := s.backend.Save(ctx, g); err != nil {
			s.logger.Error("Failed to persist gateway configuration", "error", err)
			return err
		}
	}

	s.mu.Lock()
	s.gateway = g
	s.mu.Unlock()
	s.logger.Info("Saved gateway configuration", "base_url", g.BaseURL)
	return nil
}

// FileBackend stores the gateway configuration as a YAML file.
type FileBackend struct {
	Path string
}

// NewFileBackend creates a file backend
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

// Load reads the YAML file
func (b *FileBackend) Load(ctx context.Context) (Gateway, bool, error) {
	var g Gateway
	data, err := os.ReadFile(b.Path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return g, false, nil
	}
	if err != nil {
		return g, false, errors.Wrapf(err, errors.ErrInvalidConfig, "read %s", b.Path)
	}
	if err := yaml.Unmarshal(data, &g); err != nil {
		return g, false, errors.Wrapf(err, errors.ErrInvalidConfig, "parse %s", b.Path)
	}
	return g, true, nil
}

// Save writes the file atomically with owner-only permissions.
func (b *FileBackend) Save(ctx context.Context, g Gateway) error {
	data, err := yaml.Marshal(g)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "encode gateway configuration")
	}

	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".gateway-*.yaml")
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "create temp file in %s", dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, errors.ErrInternal, "write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), b.Path); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "replace %s", b.Path)
	}
	return nil
}

// OpenBackend builds the backend selected by cfg. The returned close
// function is never nil.
func OpenBackend(ctx context.Context, cfg StoreConfig) (Backend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "", "memory":
		return nil, noop, nil
	case "file":
		return NewFileBackend(cfg.Path), noop, nil
	case "redis":
		rb, err := NewRedisBackendFromURL(ctx, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, noop, err
		}
		return rb, rb.Close, nil
	default:
		return nil, noop, errors.NewConfigError("unknown store backend %q", cfg.Backend)
	}
}
