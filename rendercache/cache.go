// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rendercache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/bureau-foundation/glyph/diagram"
)

// Cache stores conversion results in a Store.
type Cache struct {
	store       Store
	compression Compression
	logger      *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a Cache over store. A nil logger is slog.Default().
func New(store Store, compression Compression, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, compression: compression, logger: logger}
}

// Stats reports lookups served from the store and lookups that fell
// through to a backend.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// lookup returns the cached result for key. Store and decoding errors
// are logged and reported as a miss: a broken cache degrades to no
// cache.
func (c *Cache) lookup(ctx context.Context, key string) (*diagram.Result, bool) {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("render cache lookup failed", "key", key, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	result, err := decodeEntry(raw)
	if err != nil {
		c.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	return result, true
}

func (c *Cache) save(ctx context.Context, key string, result *diagram.Result) {
	raw, err := encodeEntry(result, c.compression)
	if err != nil {
		c.logger.Warn("encoding cache entry failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, raw); err != nil {
		c.logger.Warn("render cache store failed", "key", key, "error", err)
	}
}

// Wrap returns a Service that serves repeated requests from cache and
// forwards everything else to service. Only successful results are
// stored. The wrapped service keeps its formats and variant.
func Wrap(service diagram.Service, cache *Cache) diagram.Service {
	return &cachedService{service: service, cache: cache}
}

type cachedService struct {
	service diagram.Service
	cache   *Cache
}

func (s *cachedService) Formats() []diagram.Format { return s.service.Formats() }

func (s *cachedService) Variant() diagram.Variant { return diagram.VariantOf(s.service) }

func (s *cachedService) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	key := Key(request)
	if result, ok := s.cache.lookup(ctx, key); ok {
		s.cache.hits.Add(1)
		return result, nil
	}
	s.cache.misses.Add(1)

	result, err := s.service.Convert(ctx, request)
	if err != nil {
		return nil, err
	}
	s.cache.save(ctx, key, result)
	return result, nil
}
