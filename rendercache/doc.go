// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rendercache caches successful conversions.
//
// A conversion is a pure function of its request: the same type,
// format, safe mode, options, and source always render the same
// bytes. [Key] hashes those fields with a domain-keyed BLAKE3 hash;
// [Wrap] decorates a [diagram.Service] so repeated requests are
// served from a [Store] without invoking the backend. Failures are
// never cached.
//
// Entries are CBOR (via lib/codec) holding the content type and the
// image bytes, compressed with lz4 or zstd when that makes them
// smaller. Two stores are provided: [MemoryStore] for a single
// process and [RedisStore] for replicas sharing a cache.
package rendercache
