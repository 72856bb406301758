// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rendercache

import (
	"encoding/binary"
	"encoding/hex"
	"slices"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/glyph/diagram"
)

// keyDomain is the BLAKE3 key for cache keys, the ASCII of
// "glyph.rendercache.key" zero-padded to 32 bytes. Changing it
// invalidates every stored entry.
var keyDomain = [32]byte{
	'g', 'l', 'y', 'p', 'h', '.', 'r', 'e', 'n', 'd', 'e', 'r', 'c', 'a', 'c', 'h',
	'e', '.', 'k', 'e', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Key returns the cache key for request: the hex BLAKE3 keyed hash of
// its type, format, safe mode, options (sorted by name), and source.
// Every field is length-prefixed so no two distinct requests share an
// encoding.
func Key(request diagram.Request) string {
	hasher, err := blake3.NewKeyed(keyDomain[:])
	if err != nil {
		panic("rendercache: BLAKE3 keyed hash initialization failed: " + err.Error())
	}

	field := func(value []byte) {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(value)))
		hasher.Write(length[:])
		hasher.Write(value)
	}

	field([]byte(request.Type))
	field([]byte(request.Format))
	field([]byte(request.SafeMode.String()))

	names := make([]string, 0, len(request.Options))
	for name := range request.Options {
		names = append(names, name)
	}
	slices.Sort(names)
	field(binary.BigEndian.AppendUint64(nil, uint64(len(names))))
	for _, name := range names {
		field([]byte(name))
		field([]byte(request.Options[name]))
	}

	field(request.Source)
	return hex.EncodeToString(hasher.Sum(nil))
}
