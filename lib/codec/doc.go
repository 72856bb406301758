// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides glyph's standard CBOR encoding configuration.
//
// Glyph speaks JSON and raw image bytes at its HTTP boundary. CBOR is
// used internally for render-cache entries, which are written to the
// in-memory store or to Redis and must decode identically in every
// replica sharing the cache.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items. Same logical data always produces identical bytes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types that are only ever stored as CBOR use `cbor` struct tags.
package codec
