// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/glyph/backend/remote"
	"github.com/bureau-foundation/glyph/backend/textart"
	"github.com/bureau-foundation/glyph/backend/tool"
	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/clock"
	"github.com/bureau-foundation/glyph/lib/commander"
	"github.com/bureau-foundation/glyph/lib/config"
	"github.com/bureau-foundation/glyph/rendercache"
)

// buildRegistry registers every backend the configuration enables.
// When the render cache is enabled each service is wrapped with it.
// The returned close function releases the cache store.
func buildRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*diagram.Registry, func() error, error) {
	noop := func() error { return nil }

	registry := diagram.NewRegistry()
	resolver := textart.NewFileResolver(cfg.Includes.Root)
	if err := registry.Register(textart.New(resolver, logger), "textart", "ascii"); err != nil {
		return nil, noop, err
	}

	runner := commander.New(commander.Config{
		Timeout:   cfg.Commander.Timeout,
		MaxOutput: int(cfg.Commander.MaxOutput),
		TempRoot:  cfg.Commander.TempDir,
		Logger:    logger,
	})
	if err := tool.Register(registry, tool.Config{
		Runner:   runner,
		Binaries: tool.Binaries(cfg.Tools),
		Logger:   logger,
	}); err != nil {
		return nil, noop, err
	}

	endpoints := make(map[string]remote.Endpoint, len(cfg.Remote))
	for key, companion := range cfg.Remote {
		endpoints[key] = remote.Endpoint{
			URL:       companion.URL,
			Timeout:   companion.Timeout,
			RateLimit: companion.RateLimit,
			Burst:     companion.Burst,
		}
	}
	if err := remote.Register(registry, endpoints, logger); err != nil {
		return nil, noop, err
	}

	if !cfg.Cache.Enabled {
		return registry, noop, nil
	}

	cache, closeStore, err := newCache(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, noop, err
	}
	cached := diagram.NewRegistry()
	for _, entry := range registry.Entries() {
		if err := cached.Register(rendercache.Wrap(entry.Service, cache), entry.Identifiers...); err != nil {
			closeStore()
			return nil, noop, err
		}
	}
	return cached, closeStore, nil
}

func newCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (*rendercache.Cache, func() error, error) {
	compression, err := rendercache.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case "", "memory":
		store := rendercache.NewMemoryStore(cfg.MaxEntries, cfg.TTL, clock.Real())
		logger.Info("render cache enabled", "backend", "memory", "max_entries", cfg.MaxEntries, "ttl", cfg.TTL)
		return rendercache.New(store, compression, logger), func() error { return nil }, nil
	case "redis":
		store, err := rendercache.NewRedisStore(ctx, rendercache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, cfg.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("render cache: %w", err)
		}
		logger.Info("render cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.TTL)
		return rendercache.New(store, compression, logger), store.Close, nil
	default:
		return nil, nil, fmt.Errorf("render cache: unknown backend %q", cfg.Backend)
	}
}
