// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded I/O helpers for HTTP bodies and
// classification of connection errors.
//
// Every body glyph reads (rendered images from companion services,
// inflated GET payloads, error bodies) goes through a limit so a
// misbehaving peer cannot exhaust memory.
package netutil

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxResponseSize bounds a rendered image read from a companion
// service: 256 MB. Legitimate diagrams are orders of magnitude
// smaller.
const MaxResponseSize int64 = 256 << 20

// maxErrorBody bounds the diagnostic text kept from an error response.
const maxErrorBody = 8 << 10

// ErrTooLarge is returned by ReadLimited when the input exceeds the
// limit.
var ErrTooLarge = errors.New("body exceeds size limit")

// ReadLimited reads all of r, failing with ErrTooLarge if it holds
// more than limit bytes.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}

// ReadResponse reads a response body of at most MaxResponseSize
// bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return ReadLimited(body, MaxResponseSize)
}

// ErrorBody reads an error response body for use in a diagnostic
// message: at most 8 KiB, surrounding whitespace trimmed. Read errors
// are ignored because a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return strings.TrimSpace(string(data))
}
