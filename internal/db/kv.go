// Package db is the key-value persistence boundary for the learning store.
// Values are JSON documents addressed by string keys.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
)

// Backend names accepted by Open.
const (
	BackendMemory  = "memory"
	BackendBadger  = "badger"
	BackendSurreal = "surrealdb"
)

// KV is a minimal durable key-value store.
type KV interface {
	// Get decodes the value stored under key into dst. It reports false,
	// leaving dst untouched, when the key does not exist.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	Close(ctx context.Context) error
	// Backend names the implementation in use.
	Backend() string
}

// StoreConfig selects and configures a backend.
type StoreConfig struct {
	Backend string
	Path    string // badger directory; empty keeps badger in memory
	Surreal Config
}

// Open returns the configured backend. If it cannot be opened, Open logs a
// warning and returns an in-memory store so callers always get a usable KV.
func Open(ctx context.Context, cfg StoreConfig, logger *slog.Logger) KV {
	if logger == nil {
		logger = slog.Default()
	}

	kv, err := open(ctx, cfg, logger)
	if err != nil {
		logger.Warn("persistence unavailable, using in-memory store",
			"backend", cfg.Backend, "error", err)
		return NewMemory()
	}
	logger.Debug("persistence opened", "backend", kv.Backend())
	return kv
}

func open(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (KV, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendBadger, "":
		return OpenBadger(cfg.Path, logger)
	case BackendSurreal:
		s, err := OpenSurreal(ctx, cfg.Surreal, logger)
		if err != nil {
			return nil, err
		}
		if err := s.InitSchema(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func encode(key string, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return data, nil
}

func decode(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
