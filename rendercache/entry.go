// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rendercache

import (
	"fmt"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/codec"
)

// entryVersion is bumped when the entry layout changes. Entries with
// another version are treated as misses.
const entryVersion = 1

// entry is the stored form of a conversion result.
type entry struct {
	Version     int         `cbor:"v"`
	ContentType string      `cbor:"content_type"`
	Compression Compression `cbor:"compression"`
	Size        int         `cbor:"size"`
	Data        []byte      `cbor:"data"`
}

func encodeEntry(result *diagram.Result, compression Compression) ([]byte, error) {
	data, used, err := compress(result.Data, compression)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(entry{
		Version:     entryVersion,
		ContentType: result.ContentType,
		Compression: used,
		Size:        len(result.Data),
		Data:        data,
	})
}

func decodeEntry(raw []byte) (*diagram.Result, error) {
	var stored entry
	if err := codec.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}
	if stored.Version != entryVersion {
		return nil, fmt.Errorf("cache entry version %d, want %d", stored.Version, entryVersion)
	}
	data, err := decompress(stored.Data, stored.Compression, stored.Size)
	if err != nil {
		return nil, err
	}
	return &diagram.Result{ContentType: stored.ContentType, Data: data}, nil
}
