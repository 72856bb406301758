// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rendercache

import (
	"context"
	"sync"
	"time"

	"github.com/bureau-foundation/glyph/lib/clock"
)

// Store holds encoded entries by key. Implementations apply their own
// expiry; Get reports found=false for a missing or expired key.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// DefaultTTL is how long an entry lives when no TTL is configured.
const DefaultTTL = time.Hour

// DefaultMaxEntries bounds a MemoryStore when no limit is configured.
const DefaultMaxEntries = 1024

// MemoryStore is a bounded in-process Store. When full, the oldest
// insertion is evicted.
type MemoryStore struct {
	maxEntries int
	ttl        time.Duration
	clock      clock.Clock

	mu      sync.Mutex
	entries map[string]memoryEntry
	order   []string
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryStore returns a MemoryStore holding at most maxEntries
// entries for ttl each. Zero values select the defaults; a nil clock
// is the real clock.
func NewMemoryStore(maxEntries int, ttl time.Duration, c clock.Clock) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if c == nil {
		c = clock.Real()
	}
	return &MemoryStore{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      c,
		entries:    make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.clock.Now().Before(stored.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return stored.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; !exists {
		for len(s.entries) >= s.maxEntries {
			s.evictOldest()
		}
		s.order = append(s.order, key)
	}
	s.entries[key] = memoryEntry{value: value, expires: s.clock.Now().Add(s.ttl)}
	s.compact()
	return nil
}

// Len returns the number of stored entries, including expired ones
// not yet observed by Get.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// evictOldest removes the oldest key still present. Caller holds mu.
func (s *MemoryStore) evictOldest() {
	for len(s.order) > 0 {
		key := s.order[0]
		s.order = s.order[1:]
		if _, ok := s.entries[key]; ok {
			delete(s.entries, key)
			return
		}
	}
}

// compact drops keys from order that Get has already expired, once
// they outnumber the live entries. Caller holds mu.
func (s *MemoryStore) compact() {
	if len(s.order) <= 2*len(s.entries)+16 {
		return
	}
	live := make([]string, 0, len(s.entries))
	for _, key := range s.order {
		if _, ok := s.entries[key]; ok {
			live = append(live, key)
		}
	}
	s.order = live
}

var _ Store = (*MemoryStore)(nil)
