// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commander

import (
	"bytes"
	"io"
)

// limitedBuffer keeps the first limit bytes written to it and
// silently discards the rest. Writes always report full success so
// the child never sees EPIPE because of our bound.
type limitedBuffer struct {
	buffer    bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.limit <= 0 {
		return b.buffer.Write(p)
	}
	remaining := b.limit - b.buffer.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			b.truncated = true
		}
		return len(p), nil
	}
	if len(p) > remaining {
		b.truncated = true
		b.buffer.Write(p[:remaining])
		return len(p), nil
	}
	return b.buffer.Write(p)
}

// Bytes returns the captured bytes.
func (b *limitedBuffer) Bytes() []byte {
	return b.buffer.Bytes()
}

var _ io.Writer = (*limitedBuffer)(nil)
